package csrf

import "github.com/goliatone/go-router"

// RouteConfig configures the token endpoint
type RouteConfig struct {
	Path       string
	ContextKey string
	RouteName  string
}

const (
	defaultRoutePath = "/csrf"
	defaultRouteName = "csrf.token"
)

// RegisterRoutes exposes the token of the current session to JSON
// clients. The middleware must run before the route.
func RegisterRoutes[T any](app router.Router[T], cfg ...RouteConfig) {
	conf := routeConfigDefault(cfg...)
	app.Get(conf.Path, tokenHandler(conf)).SetName(conf.RouteName)
}

func routeConfigDefault(cfg ...RouteConfig) RouteConfig {
	conf := RouteConfig{
		Path:       defaultRoutePath,
		ContextKey: DefaultContextKey,
		RouteName:  defaultRouteName,
	}
	if len(cfg) == 0 {
		return conf
	}

	c := cfg[0]
	if c.Path != "" {
		conf.Path = c.Path
	}

	if c.ContextKey != "" {
		conf.ContextKey = c.ContextKey
	}

	if c.RouteName != "" {
		conf.RouteName = c.RouteName
	}

	return conf
}

func tokenHandler(cfg RouteConfig) router.HandlerFunc {
	return func(ctx router.Context) error {
		token := TokenFromContext(ctx, cfg.ContextKey)
		if token == "" {
			return ctx.JSON(router.StatusUnauthorized, map[string]string{
				"notice": ErrTokenMissing.Error(),
				"level":  "danger",
			})
		}

		ctx.SetHeader("Cache-Control", "no-store, max-age=0")
		ctx.SetHeader("Pragma", "no-cache")
		ctx.SetHeader("Expires", "0")

		fieldName := DefaultFormFieldName
		if v, ok := ctx.Locals(cfg.ContextKey + "_field").(string); ok && v != "" {
			fieldName = v
		}

		headerName := DefaultHeaderName
		if v, ok := ctx.Locals(cfg.ContextKey + "_header").(string); ok && v != "" {
			headerName = v
		}

		return ctx.JSON(router.StatusOK, map[string]string{
			"token":       token,
			"field_name":  fieldName,
			"header_name": headerName,
		})
	}
}
