package api

import (
	"go.uber.org/fx"
)

// Module provides the HTTP handler groups to the fx graph, mirroring the
// teacher's api.Module split between handler constructors and route
// registration (wired separately in internal/server/routes.go).
var Module = fx.Module("api",
	fx.Provide(
		NewChatHandlers,
		NewMaterialHandlers,
		NewSystemHandlers,
	),
)
