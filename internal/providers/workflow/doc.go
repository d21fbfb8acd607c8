// Package workflow implements the n8n workflow-automation service.
//
// Management calls go to the public API under /api/v1 and authenticate
// with the X-N8N-API-KEY header. triggerWebhook posts to /webhook/<path>,
// which n8n serves without the API key.
package workflow
