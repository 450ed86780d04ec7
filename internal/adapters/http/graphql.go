package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/photoeye/internal/core/domain"
	"github.com/samirrijal/photoeye/internal/core/usecases"
	"github.com/samirrijal/photoeye/internal/pkg/geospatial"
)

type gqlUserKey struct{}

func gqlUser(ctx context.Context) string {
	u, _ := ctx.Value(gqlUserKey{}).(string)
	return u
}

var errGQLUnauthenticated = errors.New("X-User-ID header is required")

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lng": &graphql.Field{Type: graphql.Float},
		},
	})

	metadataType := graphql.NewObject(graphql.ObjectConfig{
		Name: "CaptureMetadata",
		Fields: graphql.Fields{
			"lat":         &graphql.Field{Type: graphql.Float},
			"lng":         &graphql.Field{Type: graphql.Float},
			"heading":     &graphql.Field{Type: graphql.Int},
			"pitch":       &graphql.Field{Type: graphql.Int},
			"zoom":        &graphql.Field{Type: graphql.Float},
			"fov":         &graphql.Field{Type: graphql.Int},
			"captured_at": &graphql.Field{Type: graphql.DateTime},
			"file_size":   &graphql.Field{Type: graphql.Int},
			"mime_type":   &graphql.Field{Type: graphql.String},
		},
	})

	photoType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Photo",
		Fields: graphql.Fields{
			"id":           &graphql.Field{Type: graphql.Int},
			"image":        &graphql.Field{Type: graphql.String},
			"thumbnail":    &graphql.Field{Type: graphql.String},
			"storage_path": &graphql.Field{Type: graphql.String},
			"place_name":   &graphql.Field{Type: graphql.String},
			"metadata":     &graphql.Field{Type: metadataType},
			"created_at":   &graphql.Field{Type: graphql.DateTime},
		},
	})

	panoramaType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Panorama",
		Fields: graphql.Fields{
			"pano_id":   &graphql.Field{Type: graphql.String},
			"location":  &graphql.Field{Type: geoPointType},
			"date":      &graphql.Field{Type: graphql.String},
			"copyright": &graphql.Field{Type: graphql.String},
			"distance": &graphql.Field{
				Type: graphql.Float,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if pano, ok := p.Source.(*domain.Panorama); ok && pano.Distance != nil {
						return *pano.Distance, nil
					}
					return nil, nil
				},
			},
			"search_radius": &graphql.Field{Type: graphql.Int},
		},
	})

	coordArgs := graphql.FieldConfigArgument{
		"lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
		"lng": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"photos": &graphql.Field{
				Type:        graphql.NewList(photoType),
				Description: "The caller's album, newest first",
				Args: graphql.FieldConfigArgument{
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: usecases.DefaultAlbumLimit},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					user := gqlUser(p.Context)
					if user == "" {
						return nil, errGQLUnauthenticated
					}
					photos, _, err := deps.Albums.List(p.Context, user, p.Args["offset"].(int), p.Args["limit"].(int))
					return photos, err
				},
			},
			"photo": &graphql.Field{
				Type:        photoType,
				Description: "One photo of the caller's album",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					user := gqlUser(p.Context)
					if user == "" {
						return nil, errGQLUnauthenticated
					}
					photo, err := deps.Albums.Get(p.Context, user, int64(p.Args["id"].(int)))
					if errors.Is(err, domain.ErrNotFound) {
						return nil, nil
					}
					return photo, err
				},
			},
			"placeName": &graphql.Field{
				Type:        graphql.String,
				Description: "\"City, Country\" style name of a point",
				Args:        coordArgs,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Locations.PlaceName(p.Context, p.Args["lat"].(float64), p.Args["lng"].(float64))
				},
			},
			"nearestPanorama": &graphql.Field{
				Type:        panoramaType,
				Description: "Closest outdoor panorama, searching progressively wider radii",
				Args:        coordArgs,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					pano, err := deps.Locations.NearestPanorama(p.Context, p.Args["lat"].(float64), p.Args["lng"].(float64))
					if errors.Is(err, domain.ErrNoImagery) {
						return nil, nil
					}
					return pano, err
				},
			},
			"fov": &graphql.Field{
				Type:        graphql.Int,
				Description: "Field of view in degrees for a viewer zoom level",
				Args: graphql.FieldConfigArgument{
					"zoom": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return geospatial.FOVFromZoom(p.Args["zoom"].(float64)), nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil || req.Query == "" {
			return errBadRequest(c, "invalid request body")
		}

		ctx := context.WithValue(c.UserContext(), gqlUserKey{}, userID(c))
		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        ctx,
		})

		c.Set(fiber.HeaderCacheControl, "private, max-age=0")
		return c.JSON(result)
	}
}
