package meta

// TriggerType tags an event source declaration with the binder that
// wires it. The set is closed: the engine rejects unknown tags instead
// of skipping them.
type TriggerType string

const (
	TriggerDynamoDB TriggerType = "dynamodb_trigger"
	TriggerSchedule TriggerType = "cloudwatch_rule_trigger"
	TriggerS3       TriggerType = "s3_trigger"
	TriggerSNS      TriggerType = "sns_topic_trigger"
	TriggerKinesis  TriggerType = "kinesis_trigger"
	TriggerSQS      TriggerType = "sqs_trigger"
)

// TriggerSpec is one event source entry of a function: the tag selecting
// the binder plus the binder-specific parameters.
type TriggerSpec struct {
	Type   TriggerType
	Params Params
}

// EventSources returns the trigger specs declared under the
// "event_sources" key. Entries that are not maps are ignored; a missing
// or unknown tag surfaces later, at engine dispatch.
func (p Params) EventSources() []TriggerSpec {
	items, ok := p["event_sources"].([]any)
	if !ok {
		return nil
	}
	specs := make([]TriggerSpec, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		params := Params(m)
		specs = append(specs, TriggerSpec{
			Type:   TriggerType(params.Str("resource_type")),
			Params: params,
		})
	}
	return specs
}
