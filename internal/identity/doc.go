// Package identity holds the predicates and normalizers shared by matching,
// merging, and persistence.
//
// Masked reports whether a value carries redaction placeholders; every trust
// decision in the pipeline goes through it. The phone helpers produce E.164
// numbers from unmasked input and wildcard patterns from masked fragments such
// as "(+1)808*****50". Name and handle keys fold case and whitespace so lookups
// are insensitive to formatting noise.
package identity
