package tensor

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/goccy/go-json"
)

// Record is the serialised form of a tensor.
type Record struct {
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

func (t *Tensor) Record() Record {
	return Record{Shape: t.Shape(), Data: t.Data()}
}

func FromRecord(rec Record) (*Tensor, error) {
	if len(rec.Shape) == 0 {
		return nil, errors.New("record missing shape")
	}
	return New(rec.Data, rec.Shape...)
}

// EncodeTensors writes a named tensor set as an indented JSON object.
func EncodeTensors(w io.Writer, tensors map[string]*Tensor) error {
	if len(tensors) == 0 {
		return errors.New("EncodeTensors requires at least one tensor")
	}
	records := make(map[string]Record, len(tensors))
	for name, t := range tensors {
		if t == nil {
			return fmt.Errorf("tensor %s is nil", name)
		}
		records[name] = t.Record()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func DecodeTensors(r io.Reader) (map[string]*Tensor, error) {
	records := make(map[string]Record)
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, err
	}
	out := make(map[string]*Tensor, len(records))
	for name, rec := range records {
		t, err := FromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("tensor %s: %w", name, err)
		}
		out[name] = t
	}
	return out, nil
}

// SaveTensors serialises a named tensor set to disk.
func SaveTensors(path string, tensors map[string]*Tensor) error {
	if len(tensors) == 0 {
		return errors.New("SaveTensors requires at least one tensor")
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodeTensors(file, tensors); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// LoadTensors reads tensors written by SaveTensors.
func LoadTensors(path string) (map[string]*Tensor, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return DecodeTensors(file)
}

// SortedNames returns the keys of a tensor set in lexical order.
func SortedNames(tensors map[string]*Tensor) []string {
	names := make([]string, 0, len(tensors))
	for name := range tensors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
