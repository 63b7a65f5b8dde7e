package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Material is one user-uploaded study document: a file reference plus the
// Material Processing Pipeline's status machine and its eventual
// extracted_text/embedding.
type Material struct {
	ent.Schema
}

func (Material) Mixin() []ent.Mixin {
	return []ent.Mixin{
		UUIDMixin{},
		TimeMixin{},
	}
}

func (Material) Fields() []ent.Field {
	return []ent.Field{
		field.String("course_id").
			NotEmpty().
			Immutable().
			Comment("opaque authorization/retrieval scope; never cross-referenced"),
		field.String("file_ref").
			NotEmpty().
			Immutable().
			Comment("reference the external file store resolves to raw bytes + media type"),
		field.String("name").
			NotEmpty(),
		field.String("media_type").
			NotEmpty().
			Immutable(),
		field.Int64("size_bytes").
			NonNegative(),
		field.Text("extracted_text").
			Optional().
			Default(""),
		// Stored as little-endian float32s; see internal/materials for the
		// encode/decode helpers. A constant dimension D is enforced by the
		// writer, never by the schema (the spec treats mixed dimensions
		// across a deployment as a defect to prevent, not a constraint to
		// encode here).
		field.Bytes("embedding").
			Optional(),
		field.Enum("processing_status").
			Values("pending", "processing", "completed", "failed").
			Default("pending"),
		field.Time("processed_at").
			Optional().
			Nillable(),
		field.String("error_message").
			Optional().
			Default(""),
	}
}

func (Material) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("course_id", "processing_status"),
		index.Fields("course_id", "created_at"),
	}
}
