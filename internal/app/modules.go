package app

import (
	"io"

	"github.com/specialistvlad/modgrid/internal/handlers"
	"github.com/specialistvlad/modgrid/modules/env_vars"
	"github.com/specialistvlad/modgrid/modules/http_request"
	"github.com/specialistvlad/modgrid/modules/print"
)

// coreModules is the definitive list of all handler modules that are
// compiled into the modgrid binary.
func coreModules(outW io.Writer) []handlers.Module {
	return []handlers.Module{
		&env_vars.Module{},
		&print.Module{Out: outW},
		&http_request.Module{},
	}
}
