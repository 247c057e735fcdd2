package nats

import (
	"github.com/nats-io/nats.go/micro"

	"github.com/flarexio/ragblade"
)

func AddEndpoints(group micro.Group, endpoints *ragblade.EndpointSet) error {
	handlers := []struct {
		name    string
		handler micro.HandlerFunc
	}{
		{"add_documents", AddDocumentsHandler(endpoints.AddDocuments)},
		{"query", QueryHandler(endpoints.Query)},
		{"list_ids", ListIDsHandler(endpoints.ListIDs)},
		{"count", CountHandler(endpoints.Count)},
		{"set_collection", SetCollectionHandler(endpoints.SetCollection)},
		{"reset", ResetHandler(endpoints.Reset)},
	}

	for _, h := range handlers {
		if err := group.AddEndpoint(h.name, h.handler); err != nil {
			return err
		}
	}

	return nil
}
