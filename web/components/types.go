package components

// NavItem is one entry of the sidebar menu.
type NavItem struct {
	Label string
	Href  string
}

// Menu lists the pages in sidebar order.
var Menu = []NavItem{
	{Label: "Home", Href: "/"},
	{Label: "Generate QR Code", Href: "/generate"},
	{Label: "Decode QR Code", Href: "/decode"},
	{Label: "New AI QR", Href: "/ai"},
	{Label: "Runs", Href: "/runs"},
	{Label: "About Us", Href: "/about"},
}

// Option is a choice in a select or radio group.
type Option struct {
	Value    string
	Label    string
	Selected bool
}
