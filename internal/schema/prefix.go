package schema

// wirePrefixTag disambiguates the rewritten column prefixes from any
// plaintext column name an analyst might otherwise have chosen.
const wirePrefixTag = "DS"

// Column name prefixes applied when an extended schema is rewritten into
// the basic schema actually sent to the table service. A result column's
// prefix is how the reassembler decides which decryption rule to apply,
// so these strings are part of the wire contract, not cosmetic.
const (
	PrefixProbabilistic    = wirePrefixTag + "_PROBABILISTIC_"
	PrefixPseudonym        = wirePrefixTag + "_PSEUDONYM_"
	PrefixSearchwords      = wirePrefixTag + "_SEARCHWORDS_"
	PrefixHomomorphicInt   = wirePrefixTag + "_HOMOMORPHIC_INT_"
	PrefixHomomorphicFloat = wirePrefixTag + "_HOMOMORPHIC_FLOAT_"
)

// PeriodReplacement substitutes the dots in a record column's flattened
// path (e.g. "citiesLived.job.position") when it is turned into a wire
// column name, since the table service does not allow dots in identifiers.
const PeriodReplacement = "_dot_"
