package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/picklr-io/relish/internal/logging"
	"github.com/picklr-io/relish/internal/meta"
	"github.com/picklr-io/relish/providers/aws"
)

// functionRequired are the meta fields a function cannot deploy
// without.
var functionRequired = []string{"iam_role_name", "runtime", "memory", "timeout", "func_name"}

// reconcileFunction deploys one function: validate the declaration,
// check the code artifact, short-circuit when the function already
// exists, resolve the execution role, create, wait out the settle
// delay, re-read, apply the concurrency override, then wire the
// declared triggers in order.
func (e *Engine) reconcileFunction(ctx context.Context, d meta.ResourceDescriptor) (meta.DeploymentRecord, error) {
	log := logging.With("resource", d.Name, "type", d.Kind)

	if err := validateParams(d.Name, d.Meta, functionRequired); err != nil {
		return nil, err
	}

	key := d.Meta.Str("s3_path")
	if key == "" {
		return nil, &DependencyError{Resource: d.Name, Dependency: "deployment package (no s3_path declared)"}
	}
	ok, err := e.clients.Buckets.ObjectExists(ctx, e.cfg.DeployBucket, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &DependencyError{
			Resource:   d.Name,
			Dependency: fmt.Sprintf("deployment package s3://%s/%s", e.cfg.DeployBucket, key),
		}
	}

	if existing, found, err := e.clients.Functions.Get(ctx, d.Name); err != nil {
		return nil, err
	} else if found {
		log.Warn("function already exists, skipping create")
		return d.Describe(meta.ResourceID(existing.ARN), existing.Description), nil
	}

	roleName := d.Meta.Str("iam_role_name")
	roleARN, found, err := e.clients.Roles.RoleARN(ctx, roleName)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &DependencyError{Resource: d.Name, Dependency: fmt.Sprintf("execution role %s", roleName)}
	}

	in := aws.CreateFunctionInput{
		Name:             d.Name,
		Handler:          d.Meta.Str("func_name"),
		Runtime:          strings.ToLower(d.Meta.Str("runtime")),
		RoleARN:          roleARN,
		S3Bucket:         e.cfg.DeployBucket,
		S3Key:            key,
		MemoryMB:         d.Meta.Int32("memory"),
		TimeoutSec:       d.Meta.Int32("timeout"),
		EnvVars:          d.Meta.StrMap("env_variables"),
		SubnetIDs:        d.Meta.StrSlice("subnet_ids"),
		SecurityGroupIDs: d.Meta.StrSlice("security_group_ids"),
		DeadLetterARN:    e.deadLetterARN(d.Meta),
		TracingMode:      d.Meta.Str("tracing_mode"),
	}
	if err := e.clients.Functions.Create(ctx, in); err != nil {
		return nil, err
	}

	// The provider may serve an empty read right after create.
	if err := e.sleep(ctx, e.cfg.Waits.PostCreate); err != nil {
		return nil, err
	}
	created, found, err := e.clients.Functions.Get(ctx, d.Name)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("function %s not visible after create", d.Name)
	}

	if d.Meta.Has("concurrent_executions") {
		e.applyConcurrencyOverride(ctx, log, d.Name, d.Meta.Int32("concurrent_executions"))
	}

	for _, spec := range d.Meta.EventSources() {
		if err := e.bindTrigger(ctx, d.Name, created.ARN, roleName, spec); err != nil {
			return nil, err
		}
	}

	log.Info("function deployed", "arn", created.ARN)
	return d.Describe(meta.ResourceID(created.ARN), created.Description), nil
}

// applyConcurrencyOverride reserves concurrency for the function when
// the account has headroom for it. Reserved concurrency is a soft
// quota setting, so nothing here ever fails the deployment.
func (e *Engine) applyConcurrencyOverride(ctx context.Context, log *slog.Logger, function string, want int32) {
	headroom, err := e.clients.Functions.UnreservedConcurrency(ctx)
	if err != nil {
		log.Warn("skipping concurrency override, cannot read account headroom", "error", err)
		return
	}
	if want > headroom {
		log.Warn("skipping concurrency override, exceeds unreserved account concurrency",
			"requested", want, "unreserved", headroom)
		return
	}
	if err := e.clients.Functions.SetReservedConcurrency(ctx, function, want); err != nil {
		log.Warn("failed to set reserved concurrency", "error", err)
		return
	}
	log.Debug("reserved concurrency set", "executions", want)
}

// deadLetterARN builds the dead letter target ARN from dl_resource_type
// and dl_resource_name, scoped to the engine's account and region.
// Returns "" when no dead letter target is declared.
func (e *Engine) deadLetterARN(params meta.Params) string {
	dlType := strings.ToLower(params.Str("dl_resource_type"))
	dlName := params.Str("dl_resource_name")
	if dlType == "" || dlName == "" {
		return ""
	}
	return fmt.Sprintf("arn:aws:%s:%s:%s:%s", dlType, e.cfg.Region, e.cfg.AccountID, dlName)
}

// removeFunction deletes the function, its event source mappings and
// its log groups. A function already gone is success, not failure.
func (e *Engine) removeFunction(ctx context.Context, id meta.ResourceID, obj meta.DescriptionObject) error {
	log := logging.With("resource", obj.ResourceName, "type", meta.KindLambda)
	name := obj.ResourceName

	if err := e.clients.Functions.Delete(ctx, name); err != nil {
		if aws.IsNotFound(err) {
			log.Warn("function is not found, nothing to remove")
			return nil
		}
		return err
	}
	if err := e.clients.Functions.RemoveEventSources(ctx, name); err != nil {
		return err
	}

	groups, err := e.clients.Logs.LogGroupNames(ctx)
	if err != nil {
		return err
	}
	for _, group := range groups {
		if group[strings.LastIndex(group, "/")+1:] != name {
			continue
		}
		if err := e.clients.Logs.DeleteLogGroup(ctx, group); err != nil {
			if aws.IsNotFound(err) {
				continue
			}
			return err
		}
	}

	log.Info("function removed", "id", id)
	return nil
}
