package store

import (
	"fmt"
	"net/url"

	"github.com/simres/resup/pkg/resup"
	"github.com/sirupsen/logrus"
)

// AuditLog forwards upload events to the store's message log so that upload
// problems are visible next to the case they belong to. Delivery is
// best-effort: a failed audit post is logged locally and dropped.
type AuditLog struct {
	store  resup.Store
	source string
	log    logrus.FieldLogger
}

func NewAuditLog(store resup.Store, source string, log logrus.FieldLogger) *AuditLog {
	return &AuditLog{
		store:  store,
		source: source,
		log:    log.WithField("module", "auditlog"),
	}
}

// Log posts one event, tagged with the owning object uuid.
func (a *AuditLog) Log(objectUUID string, event interface{}) {
	path := fmt.Sprintf("/message-log/new?objectUuid=%s&source=%s",
		url.QueryEscape(objectUUID), url.QueryEscape(a.source))

	resp, err := a.store.Post(path, event)
	if err != nil {
		a.log.WithError(err).Warn("Dropping audit event, store unreachable")
		return
	}
	if !resp.Ok() {
		a.log.WithField("status", resp.StatusCode).Warn("Dropping audit event, store refused it")
	}
}
