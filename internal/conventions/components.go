package conventions

import (
	"fmt"
	"slices"
	"time"

	"github.com/zhoujuxi2028/consoleqa/internal/model"
)

const (
	patternUpdateTimeout   = 300 * time.Second
	patternRollbackTimeout = 180 * time.Second
)

var components = []model.Component{
	{
		ID: "PTN", Name: "Virus Pattern", UILabel: "Virus Pattern", INIKey: "PTNVersion",
		LockFile: LockFilePath("ptn"), SuccessPattern: `PTN.*update.*success|Pattern.*update.*complete`,
		UpdateTimeout: patternUpdateTimeout, RollbackTimeout: patternRollbackTimeout, RollbackSupported: true,
	},
	{
		ID: "SPYWARE", Name: "Spyware Pattern", UILabel: "Spyware Pattern", INIKey: "SpywareVersion",
		LockFile: LockFilePath("spyware"), SuccessPattern: `Spyware.*update.*success|Spyware.*update.*complete`,
		UpdateTimeout: patternUpdateTimeout, RollbackTimeout: patternRollbackTimeout, RollbackSupported: true,
	},
	{
		ID: "BOT", Name: "Bot Pattern", UILabel: "Bot Pattern", INIKey: "BotVersion",
		LockFile: LockFilePath("bot"), SuccessPattern: `Bot.*update.*success|Bot.*update.*complete`,
		UpdateTimeout: patternUpdateTimeout, RollbackTimeout: patternRollbackTimeout, RollbackSupported: true,
	},
	{
		ID: "ITP", Name: "IntelliTrap Pattern", UILabel: "IntelliTrap Pattern", INIKey: "ITPVersion",
		LockFile:      LockFilePath("itp"),
		UpdateTimeout: patternUpdateTimeout, RollbackTimeout: patternRollbackTimeout, RollbackSupported: true,
	},
	{
		ID: "ITE", Name: "IntelliTrap Exception Pattern", UILabel: "IntelliTrap Exception", INIKey: "ITEVersion",
		LockFile:      LockFilePath("ite"),
		UpdateTimeout: patternUpdateTimeout, RollbackTimeout: patternRollbackTimeout, RollbackSupported: true,
	},
	{
		ID: "ICRCAGENT", Name: "Smart Scan Agent Pattern", UILabel: "Smart Scan Agent", INIKey: "ICRCAgentVersion",
		LockFile:      LockFilePath("icrcagent"),
		UpdateTimeout: patternUpdateTimeout, RollbackTimeout: patternRollbackTimeout, RollbackSupported: true,
	},
	{
		ID: "ENG", Name: "Virus Scan Engine", UILabel: "Virus Scan Engine", INIKey: "EngineVersion",
		LockFile: LockFilePath("engine"), SuccessPattern: `Engine.*update.*success|Scan engine.*update.*complete`,
		UpdateTimeout: 720 * time.Second, RollbackTimeout: 360 * time.Second, RollbackSupported: true,
	},
	{
		ID: "ATSEENG", Name: "ATSE Scan Engine", UILabel: "ATSE", INIKey: "ATSEEngineVersion",
		LockFile: LockFilePath("atseeng"), SuccessPattern: `ATSE.*update.*success|Advanced threat.*update.*complete`,
		UpdateTimeout: 600 * time.Second, RollbackTimeout: 300 * time.Second, RollbackSupported: true,
	},
	{
		ID: "TMUFEENG", Name: "URL Filtering Engine", UILabel: "URL Filtering Engine", INIKey: "TMUFEEngineVersion",
		LockFile: LockFilePath("tmufeeng"), SuccessPattern: `TMUFE.*update.*success|URL filter.*update.*complete`,
		UpdateTimeout: 600 * time.Second, RollbackSupported: false,
	},
}

func init() {
	// Components without a specific log message use the generic ones.
	for i, c := range components {
		if c.SuccessPattern == "" {
			components[i].SuccessPattern = fmt.Sprintf(`%s.*update.*success`, c.ID)
		}
		components[i].RollbackPattern = fmt.Sprintf(`%s.*rollback.*(success|complete)`, c.ID)
	}
}

// Components returns the default component catalog.
func Components() []model.Component {
	cs := make([]model.Component, 0, len(components))
	for _, c := range components {
		c.Files = slices.Clone(c.Files)
		cs = append(cs, c)
	}
	return cs
}

// Component returns the default catalog entry of a component.
func Component(id string) (model.Component, error) {
	for _, c := range Components() {
		if c.ID == id {
			return c, nil
		}
	}
	return model.Component{}, fmt.Errorf("unknown component %q: %w", id, model.ErrNotFound)
}
