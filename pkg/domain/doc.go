/*
Package domain contains the core value types of the warp pipeline engine.

It is kept free of I/O and transport concerns. Pipelines, adapters and
renderers all speak in these types.

# Key Entities

  - Key / Registry: globally unique, typed names addressing slots in a Model.
  - Model: the ordered, change-tracked accumulator threaded through a pipeline.
  - Tuple: a fixed-arity heterogeneous value container, with Collect for aggregation.
  - ViewSelector / ViewResult: the fixed view-selection strategy applied to a finished Model.
  - StatusError, ValidationError, ScriptError: the failure taxonomy, see Classify.
*/
package domain
