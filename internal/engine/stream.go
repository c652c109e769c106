package engine

import (
	"context"
	"fmt"

	"github.com/picklr-io/relish/internal/logging"
	"github.com/picklr-io/relish/internal/meta"
	"github.com/picklr-io/relish/providers/aws"
)

var streamRequired = []string{"shard_count"}

// reconcileStream deploys one stream. A stream mid-deletion gets one
// settle wait and is then re-created; a live stream is adopted as-is.
func (e *Engine) reconcileStream(ctx context.Context, d meta.ResourceDescriptor) (meta.DeploymentRecord, error) {
	log := logging.With("resource", d.Name, "type", d.Kind)

	if err := validateParams(d.Name, d.Meta, streamRequired); err != nil {
		return nil, err
	}

	existing, found, err := e.clients.Streams.Get(ctx, d.Name)
	if err != nil {
		return nil, err
	}
	if found {
		if existing.Status != aws.StreamStatusDeleting {
			log.Warn("stream already exists, skipping create")
			return d.Describe(meta.ResourceID(existing.ARN), existing.Description), nil
		}
		log.Debug("stream is deleting, waiting before re-create")
		if err := e.sleep(ctx, e.cfg.Waits.StreamDeletion); err != nil {
			return nil, err
		}
	}

	if err := e.clients.Streams.Create(ctx, d.Name, d.Meta.Int32("shard_count")); err != nil {
		return nil, err
	}
	created, found, err := e.clients.Streams.Get(ctx, d.Name)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("stream %s not visible after create", d.Name)
	}

	log.Info("stream deployed", "arn", created.ARN)
	return d.Describe(meta.ResourceID(created.ARN), created.Description), nil
}

// removeStream deletes the stream. A stream already gone counts as
// removed.
func (e *Engine) removeStream(ctx context.Context, id meta.ResourceID, obj meta.DescriptionObject) error {
	log := logging.With("resource", obj.ResourceName, "type", meta.KindKinesisStream)

	if err := e.clients.Streams.Delete(ctx, obj.ResourceName); err != nil {
		if aws.IsNotFound(err) {
			log.Warn("stream is not found, nothing to remove")
			return nil
		}
		return err
	}
	log.Info("stream removed", "id", id)
	return nil
}
