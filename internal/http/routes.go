package http

// Route is one page of the application: a name, a path and the template
// that renders it. Pages take no parameters and carry no guards.
type Route struct {
	Name     string
	Path     string
	Title    string
	Template string
}

// Routes lists the pages in navigation order.
var Routes = []Route{
	{Name: "Home", Path: "/", Title: "Expense Documents", Template: "home.html"},
	{Name: "Specs", Path: "/specs", Title: "Company Specs", Template: "specs.html"},
	{Name: "Demo", Path: "/demo", Title: "Demo", Template: "demo.html"},
}

// RouteByName looks a page up by its name.
func RouteByName(name string) (Route, bool) {
	for _, r := range Routes {
		if r.Name == name {
			return r, true
		}
	}
	return Route{}, false
}
