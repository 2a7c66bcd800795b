/*
 * COPYRIGHT 2017 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

// zk-export writes the DSL rendering of a subtree to stdout or a file.
// Usage: zk-export [-e] [-o out] <connection> [path]
package main

import (
	"context"
	"flag"
	"fmt"
	"io/ioutil"
	"os"

	"zktree/cmd/internal/zkdial"
	"zktree/session"
	"zktree/zlog"
)

const pname = "zk-export"

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [-e] [-o out] <connection> [path]\n", pname)
	os.Exit(2)
}

func main() {
	includeEphemeral := flag.Bool("e", false, "include ephemeral nodes")
	outPath := flag.String("o", "", "output file (default stdout)")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 || len(args) > 2 {
		usage()
	}

	connString := args[0]
	path := "/"
	if len(args) == 2 {
		path = args[1]
	}

	log := zlog.New(pname)
	defer log.Sync()

	ctx := context.Background()
	s, err := session.New(ctx, session.Options{
		ConnString: connString,
		Logger:     log,
		Dial:       zkdial.Dial,
	})
	if err != nil {
		log.Fatalw("connect failed", "connection", connString, "error", err)
	}
	defer s.Close()

	text, err := s.ExportTree(ctx, path, *includeEphemeral, "")
	if err != nil {
		log.Fatalw("export failed", "path", path, "error", err)
	}

	if *outPath == "" {
		fmt.Print(text)
		return
	}
	if err := ioutil.WriteFile(*outPath, []byte(text), 0644); err != nil {
		log.Fatalw("write failed", "file", *outPath, "error", err)
	}
}
