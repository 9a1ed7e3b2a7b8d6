/*
Copyright © 2024 paul <paul@denknerd.org>
*/

// Command wp2aem moves a WordPress export into AEM, either over the Sling API or as a package.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
