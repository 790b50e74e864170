package domain

// TokenStandard identifies which token contract a work is minted under. Each
// standard keeps its own asset table, so (work id, standard) is never
// ambiguous.
type TokenStandard string

const (
	// ERC721 is the single-edition token standard.
	ERC721 TokenStandard = "erc721"
	// ERC1155 is the multi-edition token standard.
	ERC1155 TokenStandard = "erc1155"
)

// Standards lists every supported token standard.
func Standards() []TokenStandard {
	return []TokenStandard{ERC721, ERC1155}
}

// Asset is the cached on-chain representation of a work once minted. Before
// the mint confirms the row exists only as a placeholder with empty ledger
// fields.
type Asset struct {
	WorkID          string
	Address         string
	TokenID         string
	Name            string
	Description     string
	ImageURL        string
	ImagePreviewURL string
	Permalink       string
	UsdPrice        float64
	EthPrice        float64
}

// NewPlaceholderAsset returns the pre-mint row for a work.
func NewPlaceholderAsset(workID string) *Asset {
	return &Asset{WorkID: workID}
}

// IsPlaceholder reports whether the row still lacks ledger-derived fields.
func (a *Asset) IsPlaceholder() bool {
	return a.Address == "" && a.TokenID == ""
}

// AssetMetadata is the canonical token metadata reported by the marketplace
// metadata service.
type AssetMetadata struct {
	Name            string
	Description     string
	ImageURL        string
	ImagePreviewURL string
	Permalink       string
	UsdPrice        float64
	EthPrice        float64
	OwnerAddresses  []string
}

// Publish populates the row with ledger-confirmed fields. All fields derive
// from ledger state, so re-publishing is last-write-wins and safe under
// duplicate delivery.
func (a *Asset) Publish(address, tokenID string, md *AssetMetadata) {
	a.Address = address
	a.TokenID = tokenID
	a.Name = md.Name
	a.Description = md.Description
	a.ImageURL = md.ImageURL
	a.ImagePreviewURL = md.ImagePreviewURL
	a.Permalink = md.Permalink
	a.UsdPrice = md.UsdPrice
	a.EthPrice = md.EthPrice
}

// User is the executing identity for mint and sell operations.
type User struct {
	ID            string
	WalletAddress string
	WalletSecret  string
}
