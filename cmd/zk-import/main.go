/*
 * COPYRIGHT 2017 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

// zk-import reconciles a subtree against DSL text read from a file or
// stdin. Usage: zk-import [-d] [-t] [-p <perm>] <connection> [file|-] [path]
package main

import (
	"context"
	"flag"
	"fmt"
	"io/ioutil"
	"os"

	"zktree/cmd/internal/zkdial"
	"zktree/lowlevel"
	"zktree/session"
	"zktree/zlog"
)

const pname = "zk-import"

func usage() {
	fmt.Fprintf(os.Stderr,
		"usage: %s [-d] [-t] [-p <perm>] <connection> [file|-] [path]\n", pname)
	os.Exit(2)
}

func main() {
	dryRun := flag.Bool("d", false, "dry run: print diffs, change nothing")
	trim := flag.Bool("t", false, "delete live children absent from the imported tree")
	perm := flag.Int("p", int(lowlevel.PermAll), "permission bitmask for newly-created nodes")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 || len(args) > 3 {
		usage()
	}

	connString := args[0]
	source := "-"
	if len(args) >= 2 {
		source = args[1]
	}
	path := "/"
	if len(args) == 3 {
		path = args[2]
	}

	var text []byte
	var err error
	if source == "-" {
		text, err = ioutil.ReadAll(os.Stdin)
	} else {
		text, err = ioutil.ReadFile(source)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: read failed: %v\n", pname, err)
		os.Exit(1)
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

	acl := []lowlevel.ACL{{Perms: int32(*perm), Scheme: "world", ID: "anyone"}}

	diffs, err := s.ImportTree(ctx, string(text), path, *trim, acl, *dryRun)
	if err != nil {
		log.Fatalw("import failed", "path", path, "error", err)
	}

	for _, d := range diffs {
		fmt.Println(d)
	}
}
