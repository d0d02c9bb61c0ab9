// Package reembed (re)generates the embeddings of dictionary entries with
// new or updated embedding models.
//
// Entries are processed in batches in ID order. Batches are embedded with
// retry and exponential backoff, L2-normalized and written back to the
// store. Progress is checkpointed so an interrupted run resumes where it
// stopped, as long as the model did not change.
package reembed
