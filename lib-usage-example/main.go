package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sw33tLie/wpaudit/pkg/diff"
	"github.com/sw33tLie/wpaudit/pkg/extract"
	"github.com/sw33tLie/wpaudit/pkg/fetch"
	"github.com/sw33tLie/wpaudit/pkg/inventory"
	"github.com/sw33tLie/wpaudit/pkg/report"
)

func main() {
	// Usage: go run *.go -url "https://old.example.com/roller-blinds/" -page "app/roller-blinds/page.tsx"

	urlFlag := flag.String("url", "", "Legacy WordPress page URL")
	pageFlag := flag.String("page", "", "Replacement page source file")
	constantsFlag := flag.String("constants", "", "Constants file for VIDEOS.* references")

	// Parse the command-line flags
	flag.Parse()

	if *urlFlag == "" {
		fmt.Println("URL is required. Please provide it using the -url flag.")
		return
	}

	if *pageFlag == "" {
		fmt.Println("Page source is required. Please provide it using the -page flag.")
		return
	}

	// No store is needed to diff a single page, the packages work standalone
	rules := inventory.DefaultRules()

	f, err := fetch.New(fetch.Config{})
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	doc, err := f.Fetch(context.Background(), *urlFlag)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	remote, err := extract.NewRemote(rules).Extract(doc.Body)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	constants, err := extract.NewConstantsLoader().Load(*constantsFlag)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	src, err := os.ReadFile(*pageFlag)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	local := extract.NewLocal(rules, constants).Extract(string(src))

	rep := report.Format(diff.Diff(remote, local), remote, true)
	fmt.Println(rep.ReviewNotes)
	fmt.Println(rep.RevisionItems)
}
