package ml

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestArtifactRoundTrip(t *testing.T) {
	model := NewGasPriceNet(CPU)
	path := filepath.Join(t.TempDir(), "gas.model")

	if err := SaveModel(model, path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	loaded, err := LoadModel(path, CPU)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := model.Parameters()
	got := loaded.Parameters()
	for i := range want {
		wantData := want[i].Value.RawMatrix().Data
		gotData := got[i].Value.RawMatrix().Data
		if len(wantData) != len(gotData) {
			t.Fatalf("%s: size mismatch", want[i].Name)
		}
		for j := range wantData {
			if wantData[j] != gotData[j] {
				t.Fatalf("%s: value %d differs after round trip", want[i].Name, j)
			}
		}
	}
}

func TestLoadRejectsMismatchedShape(t *testing.T) {
	model := NewGasPriceNet(CPU)
	path := filepath.Join(t.TempDir(), "gas.model")
	if err := SaveModel(model, path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	payload, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var blob artifact
	if err := json.Unmarshal(payload, &blob); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Widen fc1.weight to [64,8] as if trained against 8 input features.
	for i := range blob.Tensors {
		if blob.Tensors[i].Name == "fc1.weight" {
			blob.Tensors[i].Cols = 8
			blob.Tensors[i].Data = make([]float64, 64*8)
		}
	}
	payload, err = json.Marshal(blob)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = LoadModel(path, CPU)
	if !IsArchitectureMismatch(err) {
		t.Fatalf("expected architecture mismatch, got %v", err)
	}
}

func TestLoadRejectsMissingTensor(t *testing.T) {
	model := NewGasPriceNet(CPU)
	path := filepath.Join(t.TempDir(), "gas.model")
	if err := SaveModel(model, path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	payload, _ := os.ReadFile(path)
	var blob artifact
	if err := json.Unmarshal(payload, &blob); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	blob.Tensors = blob.Tensors[:len(blob.Tensors)-1]
	payload, _ = json.Marshal(blob)
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := LoadModel(path, CPU); !IsArchitectureMismatch(err) {
		t.Fatalf("expected architecture mismatch, got %v", err)
	}
}

func TestLoadMissingFileIsPersistenceError(t *testing.T) {
	_, err := LoadModel(filepath.Join(t.TempDir(), "absent.model"), CPU)
	if err == nil {
		t.Fatal("expected error")
	}
	if IsArchitectureMismatch(err) {
		t.Fatal("missing file must not be reported as architecture mismatch")
	}
}
