package engine

import (
	"context"
	"fmt"

	"github.com/picklr-io/relish/internal/logging"
	"github.com/picklr-io/relish/internal/meta"
	"github.com/picklr-io/relish/providers/aws"
)

var ruleRequired = []string{"expression"}

// reconcileRule deploys one schedule rule; an existing rule is adopted
// as-is so functions can target rules from earlier deploys.
func (e *Engine) reconcileRule(ctx context.Context, d meta.ResourceDescriptor) (meta.DeploymentRecord, error) {
	log := logging.With("resource", d.Name, "type", d.Kind)

	if err := validateParams(d.Name, d.Meta, ruleRequired); err != nil {
		return nil, err
	}

	existing, found, err := e.clients.Rules.Get(ctx, d.Name)
	if err != nil {
		return nil, err
	}
	if found {
		log.Warn("rule already exists, skipping create")
		return d.Describe(meta.ResourceID(existing.ARN), existing.Description), nil
	}

	if err := e.clients.Rules.Put(ctx, d.Name, d.Meta.Str("expression")); err != nil {
		return nil, err
	}
	created, found, err := e.clients.Rules.Get(ctx, d.Name)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("rule %s not visible after create", d.Name)
	}

	log.Info("rule deployed", "arn", created.ARN)
	return d.Describe(meta.ResourceID(created.ARN), created.Description), nil
}

// removeRule deletes the rule and its targets. A rule already gone
// counts as removed.
func (e *Engine) removeRule(ctx context.Context, id meta.ResourceID, obj meta.DescriptionObject) error {
	log := logging.With("resource", obj.ResourceName, "type", meta.KindScheduleRule)

	if err := e.clients.Rules.Delete(ctx, obj.ResourceName); err != nil {
		if aws.IsNotFound(err) {
			log.Warn("rule is not found, nothing to remove")
			return nil
		}
		return err
	}
	log.Info("rule removed", "id", id)
	return nil
}
