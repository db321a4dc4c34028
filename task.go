package codeflow

import (
	"github.com/randalmurphal/llmkit/model"
)

// NodeKind identifies which agent a model call belongs to.
// This determines which model tier is appropriate.
type NodeKind string

const (
	// Analysis and review - need reasoning
	NodeAnalyze NodeKind = "analyze"
	NodeReview  NodeKind = "review"

	// Code generation - default tier
	NodeCode NodeKind = "code"

	// Artifact generation - can use smaller models
	NodeDocs   NodeKind = "docs"
	NodeTests  NodeKind = "tests"
	NodeDeploy NodeKind = "deploy"
)

// TierForNode returns the appropriate model tier for a node kind.
func TierForNode(k NodeKind) model.Tier {
	switch k {
	case NodeAnalyze, NodeReview:
		return model.TierThinking
	case NodeDocs, NodeTests, NodeDeploy:
		return model.TierFast
	default:
		return model.TierDefault
	}
}

// NewSelector creates a model selector configured for the workflow nodes.
// It uses the standard node-to-tier mapping.
func NewSelector(opts ...model.SelectorOption) *model.Selector {
	allOpts := append([]model.SelectorOption{
		model.WithTierFunc(func(task any) model.Tier {
			if k, ok := task.(NodeKind); ok {
				return TierForNode(k)
			}
			return model.TierDefault
		}),
	}, opts...)

	return model.NewSelector(allOpts...)
}

// KindForTemplate maps a prompt template ID to its node kind.
func KindForTemplate(templateID string) NodeKind {
	switch templateID {
	case TemplateAnalyze:
		return NodeAnalyze
	case TemplateCode:
		return NodeCode
	case TemplateReview:
		return NodeReview
	case TemplateDocs:
		return NodeDocs
	case TemplateTests:
		return NodeTests
	case TemplateDeploy:
		return NodeDeploy
	default:
		return NodeCode
	}
}
