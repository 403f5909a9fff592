package scene

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"go.mongodb.org/mongo-driver/bson"

	errs "github.com/matzehuels/crisprtower/pkg/errors"
)

// Marshal serializes a scene to pretty-printed JSON.
func Marshal(s *Scene) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// Unmarshal parses a JSON scene.
func Unmarshal(data []byte) (*Scene, error) {
	var s Scene
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidFormat, err, "unmarshal scene")
	}
	return validate(&s)
}

// MarshalBSON serializes a scene to BSON.
func MarshalBSON(s *Scene) ([]byte, error) {
	return bson.Marshal(s)
}

// UnmarshalBSON parses a BSON scene.
func UnmarshalBSON(data []byte) (*Scene, error) {
	var s Scene
	if err := bson.Unmarshal(data, &s); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidFormat, err, "unmarshal bson scene")
	}
	return validate(&s)
}

func validate(s *Scene) (*Scene, error) {
	if len(s.Nodes) == 0 {
		return nil, errs.New(errs.ErrCodeInvalidFormat, "scene has no nodes")
	}
	return s, nil
}

// WriteFile writes a scene as BSON when path ends in ".bson", else as JSON.
func WriteFile(s *Scene, path string) error {
	var (
		data []byte
		err  error
	)
	if isBSON(path) {
		data, err = MarshalBSON(s)
	} else {
		data, err = Marshal(s)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadFile reads a scene written by [WriteFile].
func ReadFile(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if isBSON(path) {
		return UnmarshalBSON(data)
	}
	return Unmarshal(data)
}

func isBSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".bson")
}
