// Package slack implements the gateway's Slack links: [OAuth installation],
// [interaction payloads] and [slash commands], over HTTP webhooks.
//
// Each link is a [chain.Link] which classifies, verifies, and decodes
// requests of one kind, before passing them to an event handler.
//
// [OAuth installation]: https://docs.slack.dev/authentication/installing-with-oauth
// [interaction payloads]: https://docs.slack.dev/interactivity/handling-user-interaction
// [slash commands]: https://docs.slack.dev/interactivity/implementing-slash-commands
package slack
