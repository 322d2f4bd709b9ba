package goquery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/docingest"
)

// rule assigns a priority and source label to anchors under a CSS selector.
type rule struct {
	selector string
	priority docingest.LinkPriority
	source   string
}

// profile describes where a documentation generator puts its navigation.
type profile struct {
	name      string
	generator string   // substring of <meta name="generator">
	markers   []string // any match identifies the generator
	rules     []rule
}

// profiles are checked in order; the first match wins. VitePress precedes
// VuePress because it shares some of its markup.
var profiles = []profile{
	{
		name:      "docusaurus",
		generator: "docusaurus",
		markers:   []string{"#__docusaurus_skipToContent_fallback", ".theme-doc-sidebar-container"},
		rules: []rule{
			{".table-of-contents a[href]", docingest.PriorityTOC, "toc"},
			{".theme-doc-sidebar-container a[href]", docingest.PriorityNavigation, "sidebar"},
			{"nav.navbar a[href]", docingest.PriorityNavigation, "nav"},
			{"article a[href], main a[href]", docingest.PriorityContent, "content"},
			{"footer a[href]", docingest.PriorityFooter, "footer"},
		},
	},
	{
		name:      "mkdocs",
		generator: "mkdocs",
		markers:   []string{"[data-md-component]", ".md-nav--primary"},
		rules: []rule{
			{".md-sidebar--secondary a[href], [data-md-component='toc'] a[href]", docingest.PriorityTOC, "toc"},
			{".md-nav--primary a[href], [data-md-component='navigation'] a[href]", docingest.PriorityNavigation, "nav"},
			{".md-content a[href], article a[href]", docingest.PriorityContent, "content"},
			{".md-footer a[href], footer a[href]", docingest.PriorityFooter, "footer"},
		},
	},
	{
		name:      "sphinx",
		generator: "sphinx",
		markers:   []string{".toctree-wrapper", ".wy-nav-side", ".sphinxsidebar"},
		rules: []rule{
			{".toctree-wrapper a[href], #localtoc a[href]", docingest.PriorityTOC, "toc"},
			{".wy-nav-side a[href], .wy-menu-vertical a[href], .sphinxsidebar a[href]", docingest.PriorityNavigation, "nav"},
			{".document a[href], .body a[href], article a[href]", docingest.PriorityContent, "content"},
			{"footer a[href]", docingest.PriorityFooter, "footer"},
		},
	},
	{
		name:      "vitepress",
		generator: "vitepress",
		markers:   []string{"#VPContent", ".VPDoc"},
		rules: []rule{
			{".VPDocAsideOutline a[href]", docingest.PriorityTOC, "toc"},
			{".VPSidebar a[href]", docingest.PriorityNavigation, "sidebar"},
			{".VPNav a[href]", docingest.PriorityNavigation, "nav"},
			{".VPDoc a[href], main a[href]", docingest.PriorityContent, "content"},
			{"footer a[href]", docingest.PriorityFooter, "footer"},
		},
	},
	{
		name:      "vuepress",
		generator: "vuepress",
		markers:   []string{".theme-default-content", ".sidebar-links"},
		rules: []rule{
			{".sidebar-links a[href], .sidebar a[href]", docingest.PriorityNavigation, "sidebar"},
			{".navbar a[href]", docingest.PriorityNavigation, "nav"},
			{".theme-default-content a[href], main a[href]", docingest.PriorityContent, "content"},
			{"footer a[href]", docingest.PriorityFooter, "footer"},
		},
	},
	{
		name:      "gitbook",
		generator: "gitbook",
		markers:   []string{"[data-testid='space.sidebar']", "[data-testid='page.desktopTableOfContents']"},
		rules: []rule{
			{"[data-testid='page.desktopTableOfContents'] a[href]", docingest.PriorityTOC, "toc"},
			{"[data-testid='space.sidebar'] a[href]", docingest.PriorityNavigation, "sidebar"},
			{"[data-testid='space.header'] a[href]", docingest.PriorityNavigation, "header"},
			{"[data-testid='page.contentEditor'] a[href], main a[href], article a[href]", docingest.PriorityContent, "content"},
			{"footer a[href]", docingest.PriorityFooter, "footer"},
		},
	},
	{
		name:      "nextra",
		generator: "nextra",
		markers:   []string{".nextra-sidebar", ".nextra-toc", ".nextra-navbar"},
		rules: []rule{
			{".nextra-toc a[href]", docingest.PriorityTOC, "toc"},
			{".nextra-sidebar a[href]", docingest.PriorityNavigation, "sidebar"},
			{".nextra-navbar a[href]", docingest.PriorityNavigation, "nav"},
			{"main a[href], article a[href]", docingest.PriorityContent, "content"},
			{"footer a[href]", docingest.PriorityFooter, "footer"},
		},
	},
}

// genericProfile uses common markup conventions and applies to any site.
var genericProfile = profile{
	name: "generic",
	rules: []rule{
		{".toc a[href], .table-of-contents a[href], .sidebar a[href], aside a[href]", docingest.PriorityTOC, "toc"},
		{"nav a[href], [role='navigation'] a[href], .nav a[href], .menu a[href], .navbar a[href]", docingest.PriorityNavigation, "nav"},
		{"main a[href], article a[href], .content a[href], .doc-content a[href]", docingest.PriorityContent, "content"},
		{"footer a[href], .footer a[href]", docingest.PriorityFooter, "footer"},
	},
}

// detect returns the profile for the generator that built doc.
// The meta generator tag is checked before structural markers.
func detect(doc *goquery.Document) profile {
	if generator, ok := doc.Find("meta[name='generator']").Last().Attr("content"); ok {
		generator = strings.ToLower(generator)
		for _, p := range profiles {
			if strings.Contains(generator, p.generator) {
				return p
			}
		}
	}

	for _, p := range profiles {
		for _, marker := range p.markers {
			if doc.Find(marker).Length() > 0 {
				return p
			}
		}
	}
	return genericProfile
}
