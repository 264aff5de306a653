package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/a-h/localcluster/wiki"
)

type WikiCategoryCommand struct {
	Dir  string `help:"Directory containing the wiki-topcats files." default:"wiki"`
	Name string `arg:"" help:"Name of the category, with or without the Category: prefix."`
}

func (c *WikiCategoryCommand) Run(ctx context.Context, g GlobalFlags) error {
	_, namesPath, categoriesPath := wiki.Paths(c.Dir)
	ids, err := wiki.LoadCategory(categoriesPath, c.Name)
	if err != nil {
		return err
	}
	names, err := wiki.OpenPageNames(namesPath)
	if err != nil {
		return err
	}
	defer names.Close()
	for _, id := range ids {
		name, err := names.Lookup(id)
		if errors.Is(err, wiki.ErrPageNotFound) {
			fmt.Println(id)
			continue
		}
		if err != nil {
			return err
		}
		fmt.Printf("%d %s\n", id, name)
	}
	return nil
}
