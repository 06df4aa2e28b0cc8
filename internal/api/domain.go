package api

import (
	"github.com/contador-app/contador/internal/classifier"
	"github.com/contador-app/contador/internal/config"
	"github.com/contador-app/contador/internal/ingest"
	"github.com/contador-app/contador/internal/invoices"
	"github.com/contador-app/contador/internal/mailbox"
	"github.com/contador-app/contador/internal/payments"
	"github.com/contador-app/contador/internal/providers"
	"github.com/contador-app/contador/internal/scans"
	"github.com/contador-app/contador/internal/scheduler"
	"github.com/contador-app/contador/internal/units"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Units      units.System
	Providers  providers.System
	Invoices   invoices.System
	Payments   payments.System
	Classifier classifier.System
	Mailbox    mailbox.System
	Ingest     ingest.System
	Scans      scans.System
	Scheduler  *scheduler.Scheduler
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(cfg *config.Config, runtime *Runtime) *Domain {
	db := runtime.Database.Connection()

	unitsSystem := units.New(db, runtime.Logger, runtime.Pagination)
	providersSystem := providers.New(db, runtime.Logger)
	invoicesSystem := invoices.New(db, runtime.Logger, runtime.Pagination)
	paymentsSystem := payments.New(db, runtime.Logger, runtime.Pagination)

	classifierSystem := classifier.New(db, &cfg.Classifier, runtime.Logger)
	mailboxSystem := mailbox.New(db, &cfg.Mailbox, runtime.Logger)

	ingestSystem := ingest.New(
		providersSystem,
		invoicesSystem,
		paymentsSystem,
		runtime.Storage,
		runtime.Logger,
	)

	scansSystem := scans.New(
		db,
		&cfg.Mailbox,
		&cfg.Classifier,
		unitsSystem,
		mailboxSystem,
		classifierSystem,
		ingestSystem,
		runtime.Logger,
	)

	return &Domain{
		Units:      unitsSystem,
		Providers:  providersSystem,
		Invoices:   invoicesSystem,
		Payments:   paymentsSystem,
		Classifier: classifierSystem,
		Mailbox:    mailboxSystem,
		Ingest:     ingestSystem,
		Scans:      scansSystem,
		Scheduler:  scheduler.New(&cfg.Scheduler, unitsSystem, scansSystem, runtime.Logger),
	}
}
