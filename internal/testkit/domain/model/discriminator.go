package model

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NullMarker is what a nil discriminator renders as.
const NullMarker = "null"

// DiscriminatorSeparator joins rendered discriminators in a collection name suffix.
const DiscriminatorSeparator = "+"

// DefaultTypePrefixes are stripped from rendered type names so collection
// names stay under the server's namespace length limit. Order matters: the
// longest prefix of a family comes first.
var DefaultTypePrefixes = []string{
	"mongo-testkit/internal/testkit/",
	"mongo-testkit/internal/",
	"mongo-testkit/",
	"go.mongodb.org/mongo-driver/bson/",
}

// Discriminator is one caller-supplied value distinguishing collections
// created by the same test. The set of variants is closed; build values with
// Null, ObjectID, String, Int, Uint, Float, Bool, Seq, TypeRef or Of.
type Discriminator interface {
	render(r NameRenderer) string
}

type nullValue struct{}
type objectIDValue primitive.ObjectID
type stringValue string
type intValue int64
type uintValue uint64
type floatValue float64
type boolValue bool
type seqValue []Discriminator
type typeValue struct{ t reflect.Type }

type mapEntry struct{ key, value Discriminator }
type mapValue []mapEntry

func Null() Discriminator                          { return nullValue{} }
func ObjectID(id primitive.ObjectID) Discriminator { return objectIDValue(id) }
func String(s string) Discriminator                { return stringValue(s) }
func Int(i int64) Discriminator                    { return intValue(i) }
func Uint(u uint64) Discriminator                  { return uintValue(u) }
func Float(f float64) Discriminator                { return floatValue(f) }
func Bool(b bool) Discriminator                    { return boolValue(b) }

// Seq renders each item and joins them with the separator. Nil items render as NullMarker.
func Seq(items ...Discriminator) Discriminator { return seqValue(items) }

// TypeRef renders the fully qualified name of t.
func TypeRef(t reflect.Type) Discriminator { return typeValue{t: t} }

// TypeOf is TypeRef for a type parameter.
func TypeOf[T any]() Discriminator {
	return TypeRef(reflect.TypeOf((*T)(nil)).Elem())
}

func (nullValue) render(NameRenderer) string       { return NullMarker }
func (v objectIDValue) render(NameRenderer) string { return primitive.ObjectID(v).Hex() }
func (v stringValue) render(NameRenderer) string   { return string(v) }
func (v intValue) render(NameRenderer) string      { return strconv.FormatInt(int64(v), 10) }
func (v uintValue) render(NameRenderer) string     { return strconv.FormatUint(uint64(v), 10) }
func (v floatValue) render(NameRenderer) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 64)
}
func (v boolValue) render(NameRenderer) string { return strconv.FormatBool(bool(v)) }

func (v seqValue) render(r NameRenderer) string {
	parts := make([]string, len(v))
	for i, item := range v {
		parts[i] = r.Render(item)
	}
	return strings.Join(parts, DiscriminatorSeparator)
}

// Entries are sorted after rendering so the suffix does not depend on map
// iteration order.
func (v mapValue) render(r NameRenderer) string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = r.Render(e.key) + "=" + r.Render(e.value)
	}
	sort.Strings(parts)
	return strings.Join(parts, DiscriminatorSeparator)
}

func (v typeValue) render(r NameRenderer) string {
	if v.t == nil {
		return NullMarker
	}
	name := qualifiedTypeName(v.t)
	for _, prefix := range r.typePrefixes {
		name = strings.ReplaceAll(name, prefix, "")
	}
	return name
}

// NameRenderer turns discriminators into collection name suffixes.
type NameRenderer struct {
	typePrefixes []string
}

// NewNameRenderer returns a renderer stripping the given prefixes from type names.
func NewNameRenderer(typePrefixes ...string) NameRenderer {
	return NameRenderer{typePrefixes: append([]string(nil), typePrefixes...)}
}

// DefaultNameRenderer strips DefaultTypePrefixes.
func DefaultNameRenderer() NameRenderer {
	return NewNameRenderer(DefaultTypePrefixes...)
}

// Render renders a single discriminator.
func (r NameRenderer) Render(d Discriminator) string {
	if d == nil {
		return NullMarker
	}
	return d.render(r)
}

// Suffix renders values and joins them with the separator. No values yield "".
func (r NameRenderer) Suffix(values ...Discriminator) string {
	return seqValue(values).render(r)
}

// qualifiedTypeName is the Go analogue of a fully qualified type name:
// import path plus type name, applied through pointers, slices and maps.
func qualifiedTypeName(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Pointer:
		return "*" + qualifiedTypeName(t.Elem())
	case reflect.Slice:
		return "[]" + qualifiedTypeName(t.Elem())
	case reflect.Array:
		return fmt.Sprintf("[%d]%s", t.Len(), qualifiedTypeName(t.Elem()))
	case reflect.Map:
		return "map[" + qualifiedTypeName(t.Key()) + "]" + qualifiedTypeName(t.Elem())
	}
	if t.Name() != "" && t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}

// Of converts an arbitrary Go value into a Discriminator. Slices and arrays
// become sequences, maps become sequences of "key=value" sorted by key, nil
// values (including nil pointers, slices and maps) become Null.
func Of(v any) Discriminator {
	switch x := v.(type) {
	case nil:
		return Null()
	case Discriminator:
		return x
	case primitive.ObjectID:
		return ObjectID(x)
	case string:
		return String(x)
	case reflect.Type:
		return TypeRef(x)
	case fmt.Stringer:
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Pointer && rv.IsNil() {
			return Null()
		}
		return String(x.String())
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return Bool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Uint(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return Float(rv.Float())
	case reflect.String:
		return String(rv.String())
	case reflect.Slice:
		if rv.IsNil() {
			return Null()
		}
		return seqOf(rv)
	case reflect.Array:
		return seqOf(rv)
	case reflect.Map:
		if rv.IsNil() {
			return Null()
		}
		return mapOf(rv)
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null()
		}
		return Of(rv.Elem().Interface())
	}
	return String(fmt.Sprint(v))
}

// Values converts each argument with Of.
func Values(vs ...any) []Discriminator {
	out := make([]Discriminator, len(vs))
	for i, v := range vs {
		out[i] = Of(v)
	}
	return out
}

func seqOf(rv reflect.Value) Discriminator {
	items := make(seqValue, rv.Len())
	for i := range items {
		items[i] = Of(rv.Index(i).Interface())
	}
	return items
}

func mapOf(rv reflect.Value) Discriminator {
	entries := make(mapValue, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		entries = append(entries, mapEntry{key: Of(iter.Key().Interface()), value: Of(iter.Value().Interface())})
	}
	return entries
}
