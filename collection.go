package wf

import (
	"reflect"
	"strings"
	"sync"
)

// Collection names the source a Read op pulls documents from, optionally
// pinned to a Go struct type so field references can be written using
// struct field names (resolved through bson tags) instead of raw dotted
// strings. It never opens a live driver connection: constructing a Read
// op is pure, and actually running a Task against a database is left to
// the caller (spec.md Non-goals exclude the database driver).
//
// Grounded on the teacher's schema.go Field[T] reflection helper and
// collection.go's notion of a named, typed collection handle — with the
// live *mongo.Collection wrapper and its CRUD methods dropped, since
// nothing in this package ever issues a query.
type Collection struct {
	Name string
	// schema, if set, is the reflect.Type backing Field lookups scoped to
	// this collection (see WithSchema).
	schema reflect.Type
}

// NewCollection names a source collection with no declared schema; its
// Field method panics until a schema is pinned with WithSchema (use the
// package-level Field for raw dotted paths).
func NewCollection(name string) Collection {
	return Collection{Name: name}
}

// WithSchema pins coll to a Go struct type so Field can resolve struct
// field names via reflection. The type parameter is supplied at the call
// site: wf.WithSchema[User](coll).
func WithSchema[T any](coll Collection) Collection {
	var zero T
	t := reflect.TypeOf(zero)
	if t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	coll.schema = t
	return coll
}

// Field resolves a Go struct field path (e.g. "Address.City") to a DocVar
// using coll's declared schema, reflecting over bson struct tags exactly
// as the teacher's Field[T] does. It panics if coll has no schema or the
// path does not exist — a typo here is a programming error to catch at
// construction time, not a runtime condition.
func (c Collection) Field(fieldPath string) DocVar {
	if c.schema == nil {
		panic(ErrInvalidField.New(fieldPath))
	}
	fields := getOrBuildFieldMap(c.schema)
	bsonPath, ok := fields[fieldPath]
	if !ok {
		panic(ErrInvalidField.New(fieldPath))
	}
	return Field(strings.Split(bsonPath, ".")...)
}

// schemaCache memoizes the Go-field-path -> BSON-field-path map per
// reflect.Type so repeated Field calls avoid repeated reflection,
// identical in shape to the teacher's sync.Map-backed schemaCache.
var schemaCache sync.Map // map[reflect.Type]map[string]string

func getOrBuildFieldMap(t reflect.Type) map[string]string {
	if cached, ok := schemaCache.Load(t); ok {
		return cached.(map[string]string)
	}
	fields := make(map[string]string)
	buildFieldMap(t, "", "", fields)
	schemaCache.Store(t, fields)
	return fields
}

func buildFieldMap(t reflect.Type, goPrefix, bsonPrefix string, out map[string]string) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		goPath := sf.Name
		if goPrefix != "" {
			goPath = goPrefix + "." + sf.Name
		}
		bsonName := resolveBsonTag(sf)
		if bsonName == "-" {
			continue
		}
		bsonPath := bsonName
		if bsonPrefix != "" {
			bsonPath = bsonPrefix + "." + bsonName
		}
		out[goPath] = bsonPath

		ft := sf.Type
		if ft.Kind() == reflect.Ptr {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct && ft.String() != "time.Time" &&
			!strings.HasPrefix(ft.PkgPath(), "go.mongodb.org") {
			buildFieldMap(ft, goPath, bsonPath, out)
		}
	}
}

func resolveBsonTag(sf reflect.StructField) string {
	tag := sf.Tag.Get("bson")
	if tag == "" {
		return strings.ToLower(sf.Name)
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return strings.ToLower(sf.Name)
	}
	return name
}
