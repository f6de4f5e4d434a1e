/*
Package tree implements the SDUI node model and the validator that gates it.

Pipeline:

	bytes -> CheckPayloadSize -> DecodeTree -> Validate -> *Tree

Failures fall into two tiers. Structural errors (ErrInvalidJSON,
*DecodingFailedError) happen before any Node exists. Limit errors
(*PayloadTooLargeError, *MaxDepthExceededError, *MaxNodeCountExceededError)
reject the whole payload; nothing from a rejected tree is ever rendered.

All traversals use explicit work stacks. Payload depth is attacker
controlled, so recursion over Nodes is not allowed in this package.
*/
package tree
