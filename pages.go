package clovis

import (
	"net/http"

	"github.com/clovis-web/clovis/core"
)

// User is the profile shown on the home page.
type User struct {
	Name    string
	Age     int
	Hobbies []string
}

// Pages is the site's page table.
func Pages() []core.Page {
	return []core.Page{
		{Path: "/", Template: "home.html", Data: homeData},
		{Path: "/sobre", Template: "about.html"},
	}
}

func homeData(r *http.Request) map[string]any {
	return map[string]any{
		"User": User{
			Name:    "Clovis",
			Age:     2,
			Hobbies: []string{"dormir", "comer", "arranhar"},
		},
	}
}
