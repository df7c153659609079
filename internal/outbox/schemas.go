package outbox

import "example.com/babylog/internal/events"

const spanSchema = `{
      "type": "object",
      "properties": {
        "kind": {"type": "string", "enum": ["feeding", "sleep", "solid_food", "diaper", "other"]},
        "start_time": {"type": "string", "format": "date-time"},
        "end_time": {"type": "string", "format": "date-time"}
      },
      "required": ["kind", "start_time"],
      "additionalProperties": false
    }`

const activityChangedSchema = `{
  "type": "object",
  "title": "ActivityChanged",
  "properties": {
    "activity_id": {"type": "string"},
    "tenant_id": {"type": "string"},
    "subject_id": {"type": "string"},
    "previous": ` + spanSchema + `,
    "current": ` + spanSchema + `,
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["activity_id", "tenant_id", "subject_id", "occurred_at"],
  "additionalProperties": false
}`

// SchemaCatalogEntry maps event type to schema definition.
type SchemaCatalogEntry struct {
	Schema string
}

var schemaCatalog = map[string]SchemaCatalogEntry{
	events.TypeActivityRecorded: {Schema: activityChangedSchema},
	events.TypeActivityRevised:  {Schema: activityChangedSchema},
	events.TypeActivityRemoved:  {Schema: activityChangedSchema},
}
