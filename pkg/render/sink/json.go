package sink

import "github.com/matzehuels/crisprtower/pkg/scene"

// RenderJSON exports the scene as indented JSON.
func RenderJSON(s *scene.Scene) ([]byte, error) { return scene.Marshal(s) }

// RenderBSON exports the scene as BSON.
func RenderBSON(s *scene.Scene) ([]byte, error) { return scene.MarshalBSON(s) }
