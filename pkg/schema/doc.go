// Package schema validates pipeline params against declared types.
//
// A Schema maps param names to types. Types are built programmatically or
// parsed from type strings such as "string", "int?" and "[string]":
//
//	limit, err := schema.ParseType("int?")
//	s := schema.Schema{"name": schema.String(), "limit": limit}
//
// A trailing "?" marks a param optional. A Schema marshals to JSON as the
// same name-to-type-string map. Validate reports every failure as a
// *domain.ValidationError, so pipelines absorb bad params into the model.
//
// Numbers are accepted in the forms params arrive in: Go integers and floats,
// and json.Number from request bodies decoded with UseNumber.
package schema
