/*
Command threadcomm runs a message-passing workload across goroutine ranks.

Usage:

	threadcomm [flags]

Flags override the environment (THREADCOMM_RANKS, WORKLOAD, ...):

	-workload name   workload to run (ring, reduce, pingpong, broadcast)
	-ranks n         number of ranks
	-rounds n        rounds per workload
	-deep            deep-copy payloads on send
	-document path   JSON, YAML or TOML document for the broadcast workload
	-json            print the run summary as JSON
	-list            list workloads and exit
	-serve           keep serving /metrics and /runs until interrupted

The exit status is 1 when any rank fails and 2 on a usage or setup error.
*/
package main
