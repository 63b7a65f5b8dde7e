package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/mixin"
	"github.com/google/uuid"

	"github.com/Shaswata28/studymate/internal/pkg/xtime"
)

// UUIDMixin gives a schema an opaque string id instead of ent's default
// auto-increment int, matching the spec's "opaque identifier" contract for
// every externally referenced entity (material_id, course_id handles).
type UUIDMixin struct {
	mixin.Schema
}

func (UUIDMixin) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			DefaultFunc(uuid.NewString).
			Unique().
			Immutable(),
	}
}

// TimeMixin shares created_at/updated_at fields across schemas.
type TimeMixin struct {
	mixin.Schema
}

func (TimeMixin) Fields() []ent.Field {
	nowUTC := func() time.Time {
		return xtime.UTCNow()
	}

	return []ent.Field{
		field.Time("created_at").
			Immutable().
			Default(nowUTC),
		field.Time("updated_at").
			Default(nowUTC).
			UpdateDefault(nowUTC),
	}
}
