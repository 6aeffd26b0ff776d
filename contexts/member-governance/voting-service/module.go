package votingservice

import (
	"log/slog"

	httpadapter "quorum/contexts/member-governance/voting-service/adapters/http"
	"quorum/contexts/member-governance/voting-service/adapters/memory"
	"quorum/contexts/member-governance/voting-service/application/commands"
	"quorum/contexts/member-governance/voting-service/application/queries"
	"quorum/contexts/member-governance/voting-service/application/workers"
	"quorum/contexts/member-governance/voting-service/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Sweeper workers.SessionSweeper
	Relay   workers.OutboxRelay
	Store   *memory.Store
}

type Dependencies struct {
	Topics    ports.TopicRepository
	Sessions  ports.SessionRepository
	Ballots   ports.BallotRepository
	Outbox    ports.OutboxWriter
	OutboxSrc ports.OutboxRepository
	Publisher ports.EventPublisher
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	BatchSize int
	Logger    *slog.Logger
}

func NewModule(deps Dependencies) Module {
	topicUseCase := commands.TopicUseCase{
		Topics: deps.Topics,
		Clock:  deps.Clock,
		IDGen:  deps.IDGen,
		Logger: deps.Logger,
	}
	sessionUseCase := commands.SessionUseCase{
		Topics:   deps.Topics,
		Sessions: deps.Sessions,
		Outbox:   deps.Outbox,
		Clock:    deps.Clock,
		IDGen:    deps.IDGen,
		Logger:   deps.Logger,
	}
	voteUseCase := commands.VoteUseCase{
		Sessions: deps.Sessions,
		Ballots:  deps.Ballots,
		Outbox:   deps.Outbox,
		Clock:    deps.Clock,
		IDGen:    deps.IDGen,
		Logger:   deps.Logger,
	}
	listingUseCase := queries.ListingUseCase{
		Topics:   deps.Topics,
		Sessions: deps.Sessions,
		Ballots:  deps.Ballots,
		Clock:    deps.Clock,
	}
	tallyUseCase := queries.TallyUseCase{
		Topics:   deps.Topics,
		Sessions: deps.Sessions,
		Ballots:  deps.Ballots,
		Clock:    deps.Clock,
	}
	return Module{
		Handler: httpadapter.Handler{
			Topics:   topicUseCase,
			Sessions: sessionUseCase,
			Votes:    voteUseCase,
			Listings: listingUseCase,
			Results:  tallyUseCase,
			Clock:    deps.Clock,
			Logger:   deps.Logger,
		},
		Sweeper: workers.SessionSweeper{
			Sessions: deps.Sessions,
			Outbox:   deps.Outbox,
			Clock:    deps.Clock,
			IDGen:    deps.IDGen,
			Logger:   deps.Logger,
		},
		Relay: workers.OutboxRelay{
			Outbox:    deps.OutboxSrc,
			Publisher: deps.Publisher,
			Clock:     deps.Clock,
			BatchSize: deps.BatchSize,
			Logger:    deps.Logger,
		},
	}
}

// NewInMemoryModule wires the module onto the in-memory store, used by tests
// and local runs without postgres. The store doubles as clock and id source
// so tests can pin time deterministically.
func NewInMemoryModule(publisher ports.EventPublisher, logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Topics:    store,
		Sessions:  store,
		Ballots:   store,
		Outbox:    store,
		OutboxSrc: store,
		Publisher: publisher,
		Clock:     store,
		IDGen:     store,
		BatchSize: 100,
		Logger:    logger,
	})
	module.Store = store
	return module
}
