//go:build silero

package vad

import (
	"log/slog"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// sileroStateDim is the hidden-state dimension per layer; Silero VAD v5
// uses a combined state tensor of shape [2, 1, 128].
const sileroStateDim = 128

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// SileroDetector runs Silero VAD v5 inference via ONNX Runtime. Built only
// with the "silero" build tag; the default build uses EnergyDetector
// instead so the binary has no ONNX Runtime dependency unless asked for.
type SileroDetector struct {
	mu sync.Mutex

	session *ort.AdvancedSession

	inputTensor  *ort.Tensor[float32]
	stateTensor  *ort.Tensor[float32]
	srTensor     *ort.Tensor[int64]
	outputTensor *ort.Tensor[float32]
	stateNTensor *ort.Tensor[float32]
}

// NewSileroDetector loads the Silero VAD model from modelData and allocates the
// input/output tensors for repeated 512-sample inference calls.
func NewSileroDetector(modelData []byte, sampleRate int) (*SileroDetector, error) {
	ortInitOnce.Do(func() {
		ortInitErr = ort.InitializeEnvironment()
	})
	if ortInitErr != nil {
		return nil, ortInitErr
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, WindowSamples16kHz))
	if err != nil {
		return nil, err
	}
	stateTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(2, 1, sileroStateDim))
	if err != nil {
		inputTensor.Destroy()
		return nil, err
	}
	srTensor, err := ort.NewTensor(ort.NewShape(1), []int64{int64(sampleRate)})
	if err != nil {
		inputTensor.Destroy()
		stateTensor.Destroy()
		return nil, err
	}
	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1))
	if err != nil {
		inputTensor.Destroy()
		stateTensor.Destroy()
		srTensor.Destroy()
		return nil, err
	}
	stateNTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(2, 1, sileroStateDim))
	if err != nil {
		inputTensor.Destroy()
		stateTensor.Destroy()
		srTensor.Destroy()
		outputTensor.Destroy()
		return nil, err
	}

	session, err := ort.NewAdvancedSessionWithONNXData(
		modelData,
		[]string{"input", "state", "sr"},
		[]string{"output", "stateN"},
		[]ort.Value{inputTensor, stateTensor, srTensor},
		[]ort.Value{outputTensor, stateNTensor},
		nil,
	)
	if err != nil {
		inputTensor.Destroy()
		stateTensor.Destroy()
		srTensor.Destroy()
		outputTensor.Destroy()
		stateNTensor.Destroy()
		return nil, err
	}

	return &SileroDetector{
		session:      session,
		inputTensor:  inputTensor,
		stateTensor:  stateTensor,
		srTensor:     srTensor,
		outputTensor: outputTensor,
		stateNTensor: stateNTensor,
	}, nil
}

// Probability runs one inference over exactly WindowSamples16kHz samples.
// Inference failures are logged and reported as silence rather than
// propagated, since Detector has no error return.
func (d *SileroDetector) Probability(window []float32) float32 {
	d.mu.Lock()
	defer d.mu.Unlock()

	copy(d.inputTensor.GetData(), window)

	if err := d.session.Run(); err != nil {
		slog.Warn("silero inference failed", "error", err)
		return 0
	}

	prob := d.outputTensor.GetData()[0]
	copy(d.stateTensor.GetData(), d.stateNTensor.GetData())
	return prob
}

// Close releases the ONNX Runtime session and tensors.
func (d *SileroDetector) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session != nil {
		d.session.Destroy()
		d.session = nil
	}
	if d.inputTensor != nil {
		d.inputTensor.Destroy()
	}
	if d.stateTensor != nil {
		d.stateTensor.Destroy()
	}
	if d.srTensor != nil {
		d.srTensor.Destroy()
	}
	if d.outputTensor != nil {
		d.outputTensor.Destroy()
	}
	if d.stateNTensor != nil {
		d.stateNTensor.Destroy()
	}
}
