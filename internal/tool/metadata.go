package tool

import (
	"slices"
	"strings"

	"github.com/harunnryd/vibechat/internal/model/contract"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ToolMetadata is informational only; it is shown by the tools command and
// never affects dispatch.
type ToolMetadata struct {
	Source       string
	Capabilities []string
	Risk         RiskLevel
	Network      bool
}

type MetadataProvider interface {
	ToolMetadata() ToolMetadata
}

type ToolDescriptor struct {
	Definition contract.ToolDef
	Metadata   ToolMetadata
}

// metadataFor returns the normalized metadata of t. Tools that do not
// describe themselves are reported as medium-risk runtime tools.
func metadataFor(t Tool) ToolMetadata {
	var meta ToolMetadata
	if provider, ok := t.(MetadataProvider); ok {
		meta = provider.ToolMetadata()
	}

	source := strings.ToLower(strings.TrimSpace(meta.Source))
	if source == "" {
		source = "runtime"
	}

	risk := RiskLevel(strings.ToLower(strings.TrimSpace(string(meta.Risk))))
	if risk != RiskLow && risk != RiskMedium && risk != RiskHigh {
		risk = RiskMedium
	}

	capabilities := make([]string, 0, len(meta.Capabilities))
	for _, c := range meta.Capabilities {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			capabilities = append(capabilities, c)
		}
	}
	slices.Sort(capabilities)

	return ToolMetadata{
		Source:       source,
		Capabilities: slices.Compact(capabilities),
		Risk:         risk,
		Network:      meta.Network,
	}
}
