package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/fieldtrace/internal/core/usecases"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	decisionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Decision",
		Fields: graphql.Fields{
			"workStatus":         &graphql.Field{Type: graphql.String},
			"distanceToCustomer": &graphql.Field{Type: graphql.Float},
			"withinGeofence":     &graphql.Field{Type: graphql.Boolean},
			"canOperateTask":     &graphql.Field{Type: graphql.Boolean},
			"blockedReason":      &graphql.Field{Type: graphql.String},
			"message":            &graphql.Field{Type: graphql.String},
		},
	})

	positionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Position",
		Fields: graphql.Fields{
			"lat":  &graphql.Field{Type: graphql.Float},
			"lon":  &graphql.Field{Type: graphql.Float},
			"time": &graphql.Field{Type: graphql.String},
		},
	})

	employeeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "TrackedEmployee",
		Fields: graphql.Fields{
			"id":            &graphql.Field{Type: graphql.String},
			"name":          &graphql.Field{Type: graphql.String},
			"role":          &graphql.Field{Type: graphql.String},
			"status":        &graphql.Field{Type: graphql.String},
			"last_position": &graphql.Field{Type: positionType},
			"last_decision": &graphql.Field{Type: decisionType},
		},
	})

	routeSampleType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RouteSample",
		Fields: graphql.Fields{
			"lat":     &graphql.Field{Type: graphql.Float},
			"lon":     &graphql.Field{Type: graphql.Float},
			"time":    &graphql.Field{Type: graphql.String},
			"address": &graphql.Field{Type: graphql.String},
		},
	})

	stopType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Stop",
		Fields: graphql.Fields{
			"start_time":       &graphql.Field{Type: graphql.String},
			"end_time":         &graphql.Field{Type: graphql.String},
			"duration_minutes": &graphql.Field{Type: graphql.Float},
			"lat":              &graphql.Field{Type: graphql.Float},
			"lng":              &graphql.Field{Type: graphql.Float},
			"address":          &graphql.Field{Type: graphql.String},
		},
	})

	heatSampleType := graphql.NewObject(graphql.ObjectConfig{
		Name: "HeatSample",
		Fields: graphql.Fields{
			"lat":    &graphql.Field{Type: graphql.Float},
			"lng":    &graphql.Field{Type: graphql.Float},
			"weight": &graphql.Field{Type: graphql.Float},
		},
	})

	parseGQLDate := func(p graphql.ResolveParams) (time.Time, error) {
		raw, _ := p.Args["date"].(string)
		if raw == "" {
			return time.Now().UTC().Truncate(24 * time.Hour), nil
		}
		return time.Parse("2006-01-02", raw)
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"liveEmployees": &graphql.Field{
				Type:        graphql.NewList(employeeType),
				Description: "All tracked employees with their latest decision",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Live.Snapshot(), nil
				},
			},
			"employee": &graphql.Field{
				Type:        employeeType,
				Description: "One employee's live record",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(string)
					rec := deps.Live.Employee(id)
					if rec == nil {
						return nil, nil
					}
					return rec, nil
				},
			},
			"route": &graphql.Field{
				Type:        graphql.NewList(routeSampleType),
				Description: "An employee's trail for one day",
				Args: graphql.FieldConfigArgument{
					"employee_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"date":        &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["employee_id"].(string)
					date, err := parseGQLDate(p)
					if err != nil {
						return nil, err
					}
					return deps.History.GetRoute(p.Context, id, date)
				},
			},
			"stops": &graphql.Field{
				Type:        graphql.NewList(stopType),
				Description: "An employee's reconstructed stops for one day",
				Args: graphql.FieldConfigArgument{
					"employee_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"date":        &graphql.ArgumentConfig{Type: graphql.String},
					"source":      &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: "recompute"},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["employee_id"].(string)
					date, err := parseGQLDate(p)
					if err != nil {
						return nil, err
					}
					source := usecases.StopSourceRecompute
					if p.Args["source"].(string) == "events" {
						source = usecases.StopSourceEvents
					}
					return deps.History.GetStops(p.Context, id, date, source)
				},
			},
			"heatmap": &graphql.Field{
				Type:        graphql.NewList(heatSampleType),
				Description: "Weighted idle heat points for one day",
				Args: graphql.FieldConfigArgument{
					"employee_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"date":        &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["employee_id"].(string)
					date, err := parseGQLDate(p)
					if err != nil {
						return nil, err
					}
					return deps.History.Heatmap(p.Context, id, date)
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
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.Context(),
		})

		return c.JSON(result)
	}
}
