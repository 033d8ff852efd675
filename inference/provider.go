package inference

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"
)

// Provider is an ONNX Runtime execution provider.
type Provider string

const (
	// ProviderCPU is the default CPU execution provider.
	ProviderCPU Provider = "cpu"
	// ProviderCoreML is the Apple CoreML execution provider.
	ProviderCoreML Provider = "coreml"
	// ProviderCUDA is the NVIDIA CUDA execution provider.
	ProviderCUDA Provider = "cuda"
	// ProviderOpenVINO is the Intel OpenVINO execution provider.
	ProviderOpenVINO Provider = "openvino"
)

// Providers lists every supported execution provider.
var Providers = []Provider{ProviderCPU, ProviderCoreML, ProviderCUDA, ProviderOpenVINO}

// Valid reports whether p is a known provider. The empty provider means CPU.
func (p Provider) Valid() bool {
	if p == "" {
		return true
	}
	for _, known := range Providers {
		if p == known {
			return true
		}
	}
	return false
}

// appendProvider enables the execution provider on the session options.
//
// Accelerators that fail to load are logged and skipped; ONNX Runtime falls
// back to the CPU provider.
func appendProvider(options *ort.SessionOptions, provider Provider, log logrus.FieldLogger) error {
	var err error
	switch provider {
	case "", ProviderCPU:
		return nil
	case ProviderCoreML:
		err = options.AppendExecutionProviderCoreML(0)
	case ProviderOpenVINO:
		err = options.AppendExecutionProviderOpenVINO(map[string]string{"device_type": "CPU"})
	case ProviderCUDA:
		var cuda *ort.CUDAProviderOptions
		cuda, err = ort.NewCUDAProviderOptions()
		if err == nil {
			defer cuda.Destroy()
			err = options.AppendExecutionProviderCUDA(cuda)
		}
	default:
		return errors.Errorf("unsupported execution provider: %q", provider)
	}

	if err != nil {
		log.WithError(err).WithField("provider", provider).Warn("execution provider unavailable, using cpu")
	}
	return nil
}
