package geo

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/location"

	qerrors "solar-estimate/pkg/errors"
)

// PlaceSearcher is the subset of the Amazon Location client used here.
type PlaceSearcher interface {
	SearchPlaceIndexForText(ctx context.Context, params *location.SearchPlaceIndexForTextInput, optFns ...func(*location.Options)) (*location.SearchPlaceIndexForTextOutput, error)
}

// AWSLocationGeocoder resolves addresses through an Amazon Location place index.
type AWSLocationGeocoder struct {
	client    PlaceSearcher
	indexName string
	countries []string
}

// NewAWSLocationGeocoder loads the default AWS credential chain for region.
func NewAWSLocationGeocoder(ctx context.Context, region, indexName string) (*AWSLocationGeocoder, error) {
	if indexName == "" {
		return nil, qerrors.NewMissingCredentials("Amazon Location", "AWS_LOCATION_PLACE_INDEX")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return NewAWSLocationGeocoderFromClient(location.NewFromConfig(cfg), indexName), nil
}

// NewAWSLocationGeocoderFromClient wraps an existing client.
func NewAWSLocationGeocoderFromClient(client PlaceSearcher, indexName string) *AWSLocationGeocoder {
	return &AWSLocationGeocoder{client: client, indexName: indexName, countries: []string{"USA"}}
}

// Resolve returns the best place-index match for address.
func (g *AWSLocationGeocoder) Resolve(ctx context.Context, address string) (Location, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return Location{}, qerrors.NewAddressNotFound("")
	}

	out, err := g.client.SearchPlaceIndexForText(ctx, &location.SearchPlaceIndexForTextInput{
		IndexName:       aws.String(g.indexName),
		Text:            aws.String(address),
		FilterCountries: g.countries,
	})
	if err != nil {
		return Location{}, fmt.Errorf("place index search %q: %w", address, err)
	}

	for _, r := range out.Results {
		if r.Place == nil || r.Place.Geometry == nil || len(r.Place.Geometry.Point) < 2 {
			continue
		}
		// Amazon Location points are [longitude, latitude].
		loc := Location{
			Coordinates: Coordinates{
				Latitude:  r.Place.Geometry.Point[1],
				Longitude: r.Place.Geometry.Point[0],
			},
		}
		if r.Place.Label != nil {
			loc.FormattedAddress = *r.Place.Label
		}
		return loc, nil
	}
	return Location{}, qerrors.NewAddressNotFound(address)
}
