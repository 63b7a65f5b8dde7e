package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// ChatTurn is one half of a (user, model) exchange, append-only per course.
// Rows are never mutated after creation; destruction only happens via course
// deletion, which is external to the core.
type ChatTurn struct {
	ent.Schema
}

func (ChatTurn) Mixin() []ent.Mixin {
	return []ent.Mixin{
		UUIDMixin{},
		TimeMixin{},
	}
}

func (ChatTurn) Fields() []ent.Field {
	return []ent.Field{
		field.String("course_id").
			NotEmpty().
			Immutable(),
		field.Int("turn_index").
			Immutable().
			Comment("monotonic per course_id; stable tie-break when created_at collides"),
		field.Enum("role").
			Values("user", "model").
			Immutable(),
		field.Text("content").
			Immutable(),
		// dedup_token lets the client safely re-submit a turn after a
		// PartialCompletion without producing a duplicate pair (§4.10).
		field.String("dedup_token").
			Optional().
			Immutable().
			Default(""),
	}
}

func (ChatTurn) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("course_id", "created_at", "turn_index"),
		index.Fields("course_id", "dedup_token"),
	}
}
