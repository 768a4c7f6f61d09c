// Package form turns admin console pages into ordered field models and back.
//
// Parse and Extract read forms with goquery, keeping every control in
// document order (duplicates included) and tagging each as hidden, checkbox,
// or other. A Convention recognises member block flags by field name suffix
// and reads the flag annotation from the surrounding table cell.
//
// Plan computes the minimal MutationPlan for a page, and Form.Serialize plus
// Payload.Encode reproduce the exact ordered body a browser would submit.
package form
