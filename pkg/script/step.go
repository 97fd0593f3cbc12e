package script

import (
	"github.com/aretw0/warp/pkg/domain"
	"github.com/aretw0/warp/pkg/pipeline"
)

// ResultKey holds the return value of scripts run by the warp binary.
var ResultKey = domain.NewKey[any]("result")

// Step adapts s to a pipeline step. The script sees the pipeline params, the
// previous result and a snapshot of the model, and its return value becomes the step output.
func Step[R, S any](s *Script) pipeline.Step[R, any, S] {
	return func(c *pipeline.Context[R, S]) (any, error) {
		snapshot := make(map[string]any, c.Model().Len())
		for k, v := range c.Model().All() {
			snapshot[k] = v
		}
		return s.Eval(c.Context(), Env{
			Params: c.Params(),
			Result: c.Result(),
			Model:  snapshot,
		})
	}
}
