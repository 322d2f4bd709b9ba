// Package docingest ingests documentation websites into a searchable
// knowledge base. It discovers pages under a URL prefix, fetches them
// (optionally through rotating proxies), converts HTML to Markdown, cleans
// and chunks the Markdown with an LLM, embeds the chunks, and stores them in
// a vector index for semantic search.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., sqlite/, pgvector/, gemini/).
package docingest
