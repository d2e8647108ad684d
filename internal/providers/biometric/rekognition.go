// Package biometric compares faces with Amazon Rekognition CompareFaces.
package biometric

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"penny/internal/providers"
)

const ProviderID = "rekognition"

type compareFacesAPI interface {
	CompareFaces(ctx context.Context, params *rekognition.CompareFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.CompareFacesOutput, error)
}

// RekognitionMatcher implements verification.FaceMatcher. It reports the
// best similarity and leaves the pass mark to the caller.
type RekognitionMatcher struct {
	client compareFacesAPI
}

func NewRekognitionMatcher(client compareFacesAPI) *RekognitionMatcher {
	return &RekognitionMatcher{client: client}
}

// Match returns the highest similarity between the document face and any
// face in the selfie. An image without a detectable face scores 0.
func (m *RekognitionMatcher) Match(ctx context.Context, documentImage, faceImage []byte) (float64, error) {
	out, err := m.client.CompareFaces(ctx, &rekognition.CompareFacesInput{
		SourceImage:         &types.Image{Bytes: documentImage},
		TargetImage:         &types.Image{Bytes: faceImage},
		SimilarityThreshold: aws.Float32(0),
	})
	if err != nil {
		var noFace *types.InvalidParameterException
		if errors.As(err, &noFace) {
			return 0, nil
		}
		return 0, providers.FromAWS(ProviderID, err)
	}

	var best float32
	for _, match := range out.FaceMatches {
		if s := aws.ToFloat32(match.Similarity); s > best {
			best = s
		}
	}
	return float64(best), nil
}
