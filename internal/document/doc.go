// Package document models configuration files as a typed tree of scalars,
// lists and maps, and implements the layered merge used to build the
// effective configuration: maps merge key by key, lists and scalars from the
// overlay replace the base, and the Reset variant clears a field.
package document
