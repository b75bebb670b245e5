package cli

import (
	"fmt"
	"net/http"

	"github.com/clovis-web/clovis"
	"github.com/clovis-web/clovis/core"
	"github.com/urfave/cli/v2"
)

var sitePages = clovis.Pages

var CheckCommand = &cli.Command{
	Name:  "check",
	Usage: "Render every page with its data to validate templates, layouts and components",
	Flags: []cli.Flag{configFlag()},
	Action: func(c *cli.Context) error {
		config := core.LoadConfig(c.String("config"))
		renderer := core.NewRenderer(config.TemplatesDir, core.TemplateFuncs("dev", config.OutputDir, config.StaticDir))

		var failed bool
		for _, page := range sitePages() {
			req, err := http.NewRequest(http.MethodGet, page.Path, nil)
			if err != nil {
				return fmt.Errorf("invalid page path %q: %w", page.Path, err)
			}

			data := map[string]any{}
			if page.Data != nil {
				data = page.Data(req)
			}

			if _, err := renderer.Render(page.Template, data); err != nil {
				failed = true
				if core.IsNotFoundError(err) {
					fmt.Printf("❌ %s → missing template: %v\n", page.Path, err)
				} else {
					fmt.Printf("❌ %s → %v\n", page.Path, err)
				}
				continue
			}
			fmt.Printf("✅ %s\n", page.Path)
		}

		if failed {
			return cli.Exit("some templates failed to render", 1)
		}

		fmt.Println("✅ All templates validated successfully.")
		return nil
	},
}
