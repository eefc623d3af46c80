// Package instagram implements social.Client over Instagram's web API.
//
// The client adds the browser headers Instagram expects, keeps the session
// cookies in a jar, throttles requests with a token bucket and retries
// network, rate-limit and server errors with exponential backoff. Failures
// surface as typed errors from igbot/pkg/errors:
//
//	client, err := instagram.NewClient(instagram.OptionsFromConfig(cfg, log))
//	if err := client.Login(ctx, cred); err != nil {
//	    if errors.TypeOf(err) == errors.ErrorTypeChallenge {
//	        // confirm the login in the app, then retry
//	    }
//	}
//
// Photos are saved through pkg/storage and normalised with pkg/media before
// upload. A proxy may be given as host:port, http://, https:// or socks5://.
package instagram
