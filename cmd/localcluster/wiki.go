package main

type WikiCommand struct {
	Cluster  WikiClusterCommand  `cmd:"cluster" help:"Find clusters of increasing volume around a page."`
	Category WikiCategoryCommand `cmd:"category" help:"List the pages in a category."`
}
