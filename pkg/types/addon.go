package types

// Addon extends the engine with namespaced commands, signers, and
// functions. Addons register in-process; the engine routes namespaced
// matchers like "evm::send_eth" to the addon owning the namespace.
type Addon interface {
	// Namespace returns the addon's matcher prefix, e.g. "evm".
	Namespace() string

	// Documentation describes the addon.
	Documentation() string

	// Actions returns the command specifications the addon contributes.
	Actions() []*CommandSpecification

	// Signers returns the signer specifications the addon contributes.
	Signers() []*SignerSpecification

	// Functions returns the expression functions the addon contributes.
	Functions() []*FunctionSpecification
}
