package ml

import (
	"encoding/json"
	"fmt"
	"os"
)

// artifactVersion guards against future format changes.
const artifactVersion = 1

type tensorBlob struct {
	Name string    `json:"name"`
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float64 `json:"data"`
}

type artifact struct {
	Version int          `json:"version"`
	Device  string       `json:"device"`
	Tensors []tensorBlob `json:"tensors"`
}

// SaveModel persists the model's named parameter tensors to path.
func SaveModel(model *GasPriceNet, path string) error {
	blob := artifact{
		Version: artifactVersion,
		Device:  model.device.String(),
	}
	for _, p := range model.Parameters() {
		data := p.Value.RawMatrix().Data
		blob.Tensors = append(blob.Tensors, tensorBlob{
			Name: p.Name,
			Rows: p.Rows,
			Cols: p.Cols,
			Data: append([]float64(nil), data...),
		})
	}

	payload, err := json.Marshal(blob)
	if err != nil {
		return &PersistenceError{Op: "encode", Path: path, Err: err}
	}
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		return &PersistenceError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// LoadModel reads an artifact and materializes a network of the declared
// architecture on the given device. Every tensor name and shape must match
// exactly; a mismatched artifact is rejected, never reshaped.
func LoadModel(path string, device Device) (*GasPriceNet, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, &PersistenceError{Op: "read", Path: path, Err: err}
	}

	var blob artifact
	if err := json.Unmarshal(payload, &blob); err != nil {
		return nil, &PersistenceError{Op: "decode", Path: path, Err: err}
	}
	if blob.Version != artifactVersion {
		return nil, &PersistenceError{Op: "decode", Path: path,
			Err: fmt.Errorf("unsupported artifact version %d", blob.Version)}
	}

	model := NewGasPriceNet(device)
	params := model.Parameters()

	byName := make(map[string]tensorBlob, len(blob.Tensors))
	for _, tensor := range blob.Tensors {
		byName[tensor.Name] = tensor
	}

	for _, p := range params {
		tensor, ok := byName[p.Name]
		if !ok {
			return nil, &ArchitectureMismatchError{
				Tensor: p.Name,
				Want:   [2]int{p.Rows, p.Cols},
			}
		}
		if tensor.Rows != p.Rows || tensor.Cols != p.Cols || len(tensor.Data) != p.Rows*p.Cols {
			return nil, &ArchitectureMismatchError{
				Tensor: p.Name,
				Want:   [2]int{p.Rows, p.Cols},
				Got:    [2]int{tensor.Rows, tensor.Cols},
			}
		}
		copy(p.Value.RawMatrix().Data, tensor.Data)
	}

	if len(blob.Tensors) != len(params) {
		return nil, &PersistenceError{Op: "decode", Path: path,
			Err: fmt.Errorf("artifact has %d tensors, expected %d", len(blob.Tensors), len(params))}
	}

	return model, nil
}
