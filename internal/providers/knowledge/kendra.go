// Package knowledge retrieves passages from the bank's document corpus with
// Amazon Kendra, optionally through a cache.
package knowledge

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kendra"

	"penny/internal/chat"
	"penny/internal/providers"
)

const (
	ProviderID = "kendra"
	// Kendra Retrieve accepts at most 100 results per page.
	maxPageSize = 100
)

type retrieveAPI interface {
	Retrieve(ctx context.Context, params *kendra.RetrieveInput, optFns ...func(*kendra.Options)) (*kendra.RetrieveOutput, error)
}

// KendraRetriever implements chat.Retriever.
type KendraRetriever struct {
	client  retrieveAPI
	indexID string
}

func NewKendraRetriever(client retrieveAPI, indexID string) *KendraRetriever {
	return &KendraRetriever{client: client, indexID: indexID}
}

func (r *KendraRetriever) Search(ctx context.Context, query string, topN int) ([]chat.Passage, error) {
	// No index configured means no reference material.
	if topN <= 0 || r.indexID == "" {
		return nil, nil
	}
	out, err := r.client.Retrieve(ctx, &kendra.RetrieveInput{
		IndexId:   aws.String(r.indexID),
		QueryText: aws.String(query),
		PageSize:  aws.Int32(int32(min(topN, maxPageSize))),
	})
	if err != nil {
		return nil, providers.FromAWS(ProviderID, err)
	}

	passages := make([]chat.Passage, 0, len(out.ResultItems))
	for _, item := range out.ResultItems {
		text := strings.TrimSpace(aws.ToString(item.Content))
		if text == "" {
			continue
		}
		passages = append(passages, chat.Passage{
			ID:    aws.ToString(item.Id),
			Title: aws.ToString(item.DocumentTitle),
			Text:  text,
			URI:   aws.ToString(item.DocumentURI),
		})
		if len(passages) == topN {
			break
		}
	}
	return passages, nil
}
