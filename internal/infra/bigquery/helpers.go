package bigquery

import (
	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
)

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}

func nullUUID(id *uuid.UUID) bigquery.NullString {
	if id == nil {
		return bigquery.NullString{}
	}
	return bigquery.NullString{StringVal: id.String(), Valid: true}
}

func uuidStrings(ids []uuid.UUID) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
