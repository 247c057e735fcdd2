package pinecone

import (
	"github.com/pinecone-io/go-pinecone/pinecone"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/flarexio/ragblade/vector"
)

func toMetadata(m vector.Metadata) (*pinecone.Metadata, error) {
	return structpb.NewStruct(vector.Normalize(m))
}

func toFilter(where vector.Filter) (*pinecone.MetadataFilter, error) {
	if len(where) == 0 {
		return nil, nil
	}

	return structpb.NewStruct(vector.Normalize(where))
}

func textOf(v *pinecone.Vector) (string, bool) {
	if v == nil || v.Metadata == nil {
		return "", false
	}

	field, ok := v.Metadata.Fields[vector.TextKey]
	if !ok {
		return "", false
	}

	s, ok := field.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", false
	}

	return s.StringValue, true
}
