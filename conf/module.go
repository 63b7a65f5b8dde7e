package conf

import (
	"go.uber.org/fx"

	"github.com/Shaswata28/studymate/internal/brain"
	"github.com/Shaswata28/studymate/internal/brainclient"
	"github.com/Shaswata28/studymate/internal/chat"
	"github.com/Shaswata28/studymate/internal/compose"
	"github.com/Shaswata28/studymate/internal/log"
	"github.com/Shaswata28/studymate/internal/materials"
	"github.com/Shaswata28/studymate/internal/pkg/xcache"
	"github.com/Shaswata28/studymate/internal/queue"
	"github.com/Shaswata28/studymate/internal/retrieval"
	"github.com/Shaswata28/studymate/internal/server"
	"github.com/Shaswata28/studymate/internal/server/biz"
	"github.com/Shaswata28/studymate/internal/server/db"
	"github.com/Shaswata28/studymate/internal/server/gc"
	"github.com/Shaswata28/studymate/internal/supervisor"
)

// Module breaks the single Config tree into the narrow sub-configs each
// component's constructor actually asks for, the same "one aggregate tree,
// many typed leaves" shape the rest of the codebase uses for its conf-tagged
// structs; fx resolves each by its own Go type.
//
// This lives in the conf package itself, not in server/dependencies: Config
// embeds server.Config, and server/dependencies is imported by internal/server,
// so an extractor package depending on both conf and server would otherwise
// close server -> dependencies -> conf -> server.
var Module = fx.Provide(
	extractAPIServer,
	extractLog,
	extractDB,
	extractSupervisor,
	extractBrainClient,
	extractBrainService,
	extractMaterials,
	extractQueue,
	extractRetrieval,
	extractCompose,
	extractChat,
	extractPersonalizationCache,
	extractFileStore,
	extractPersonalizationSource,
	extractGC,
)

func extractAPIServer(c Config) server.Config                           { return c.APIServer }
func extractLog(c Config) log.Config                                     { return c.Log }
func extractDB(c Config) db.Config                                       { return c.DB }
func extractSupervisor(c Config) supervisor.Config                       { return c.Brain.Supervisor }
func extractBrainClient(c Config) brainclient.Config                     { return c.Brain.Client }
func extractBrainService(c Config) brain.ServiceConfig                   { return c.Brain.Service }
func extractMaterials(c Config) materials.Config                         { return c.Materials }
func extractQueue(c Config) queue.Config                                 { return c.Queue }
func extractRetrieval(c Config) retrieval.Config                         { return c.Retrieval }
func extractCompose(c Config) compose.Config                             { return c.Compose }
func extractChat(c Config) chat.Config                                   { return c.Chat }
func extractPersonalizationCache(c Config) xcache.Config                 { return c.PersonalizationCache }
func extractFileStore(c Config) biz.FileStoreConfig                      { return c.FileStore }
func extractPersonalizationSource(c Config) biz.ExternalPersonalizationConfig { return c.Personalization }
func extractGC(c Config) gc.Config                                        { return c.GC }
