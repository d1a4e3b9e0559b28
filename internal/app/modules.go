package app

import (
	"github.com/specialistvlad/tricore/internal/metadata"
	"github.com/specialistvlad/tricore/modules/commands"
	"github.com/specialistvlad/tricore/modules/hud"
	"github.com/specialistvlad/tricore/modules/physics"
	"github.com/specialistvlad/tricore/modules/sampler"
	"github.com/specialistvlad/tricore/modules/stats"
)

// coreModules is the definitive list of modules compiled into the tricore
// binary. Dependencies such as world are discovered through DependsOn.
var coreModules = []metadata.Ref{
	sampler.Module,
	commands.Module,
	physics.Module,
	hud.Module,
	stats.Module,
}
