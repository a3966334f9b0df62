// Package diaspora is a Go client for posting to a diaspora* pod.
//
// Pods offer no structured API for publishing: the client emulates a
// browser session instead. It scrapes the anti-CSRF token from the
// sign-in page, performs the form login handshake, carries the session
// cookies across requests and publishes status messages as JSON the
// way the pod's own bookmarklet does.
//
// # Quick Start
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"log"
//		"os"
//
//		diaspora "github.com/podmirror/diaspora-golang"
//	)
//
//	func main() {
//		client, err := diaspora.New("pod.example.org", true)
//		if err != nil {
//			log.Fatal(err)
//		}
//		defer client.Close()
//
//		ctx := context.Background()
//		if err := client.Init(ctx); err != nil {
//			log.Fatal(err)
//		}
//		if err := client.Login(ctx, os.Getenv("DIASPORA_USERNAME"), os.Getenv("DIASPORA_PASSWORD")); err != nil {
//			log.Fatal(err)
//		}
//
//		post, err := client.Post(ctx, "Hello from Go!", nil, nil)
//		if err != nil {
//			log.Fatal(err)
//		}
//		fmt.Println(post.Permalink)
//	}
//
// # Core Features
//
//   - Token bootstrap and two-step login confirmation
//   - Publishing to aspects (recipient groups) or to everyone
//   - Relaying posts to connected third-party services
//   - Deleting posts and comments
//   - Cached aspect/service listings with forced refresh
//   - Context-aware operations for cancellation support
//   - Typed errors with a sticky last-error surface for UI layers
//   - Request/response hooks and zerolog debug logging
//
// # Session Model
//
// A Client owns one session: the pod identity, CSRF token, cookies
// and cached lists. Operations are synchronous, issue no retries and
// never follow redirects. Logout drops credentials but keeps the
// token and cookies; Deinit resets everything.
//
// # Environment Variables
//
//   - DIASPORA_POD: pod domain (bare, no scheme)
//   - DIASPORA_INSECURE_HTTP: use http instead of https
//   - DIASPORA_TIMEOUT: per-request timeout (defaults to 60s)
//   - DIASPORA_CA_BUNDLE: path to an extra PEM CA bundle
//   - DIASPORA_DEBUG: log every request and response
package diaspora
