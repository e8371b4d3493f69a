package usecase_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/vaultctl/internal/contracts"
	"github.com/trebuchet-org/vaultctl/internal/domain"
	"github.com/trebuchet-org/vaultctl/internal/domain/config"
	"github.com/trebuchet-org/vaultctl/internal/usecase"
)

var (
	deployer   = common.HexToAddress("0x1000000000000000000000000000000000000001")
	stranger   = common.HexToAddress("0x2000000000000000000000000000000000000002")
	whale      = common.HexToAddress(usecase.DefaultNativeWhale)
	tokenWhale = common.HexToAddress(usecase.DefaultTokenWhale)
	wallet     = common.HexToAddress(usecase.DefaultWallet)
	heldToken  = common.HexToAddress(usecase.DefaultToken)

	txFee = big.NewInt(21_000 * 1_000_000_000)
)

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000_000_000_000))
}

// Creation code markers. The fake chain dispatches deployments on the first two bytes.
const (
	vaultCode    = "0x60016001"
	assetCode    = "0x60026002"
	libraryCode  = "0x60036003"
	strategyCode = "0x600473" + "__$8f7d2f6a4c2b1e0d9c8b7a6f5e4d3c2b1a$__" + "00"
)

const vaultABI = `[
	{"type":"function","name":"initialize","stateMutability":"nonpayable","inputs":[
		{"name":"token","type":"address"},{"name":"governance","type":"address"},{"name":"rewards","type":"address"},
		{"name":"nameOverride","type":"string"},{"name":"symbolOverride","type":"string"}],"outputs":[]},
	{"type":"function","name":"initialize","stateMutability":"nonpayable","inputs":[
		{"name":"token","type":"address"},{"name":"governance","type":"address"},{"name":"rewards","type":"address"},
		{"name":"nameOverride","type":"string"},{"name":"symbolOverride","type":"string"},{"name":"guardian","type":"address"}],"outputs":[]},
	{"type":"function","name":"governance","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"setDepositLimit","stateMutability":"nonpayable","inputs":[{"name":"limit","type":"uint256"}],"outputs":[]}
]`

const assetABI = `[
	{"type":"constructor","stateMutability":"nonpayable","inputs":[
		{"name":"_name","type":"string"},{"name":"_symbol","type":"string"},{"name":"_decimals","type":"uint8"},
		{"name":"_underlying","type":"address"},{"name":"_vault","type":"address"}]},
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]}
]`

func mustABI(t *testing.T, def string) abi.ABI {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(def))
	require.NoError(t, err)
	return parsed
}

// fakeArtifacts serves a fixed set of compiled contracts
type fakeArtifacts map[string]*domain.ContractArtifact

func (f fakeArtifacts) GetArtifact(_ context.Context, name string) (*domain.ContractArtifact, error) {
	if artifact, ok := f[name]; ok {
		return artifact, nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrContractNotFound, name)
}

func newFakeArtifacts(t *testing.T) fakeArtifacts {
	empty := mustABI(t, "[]")
	return fakeArtifacts{
		"Vault":          {Name: "Vault", SourceName: "contracts/Vault.sol", ABI: mustABI(t, vaultABI), Bytecode: vaultCode},
		"AnyswapV5ERC20": {Name: "AnyswapV5ERC20", SourceName: "contracts/AnyswapV5ERC20.sol", ABI: mustABI(t, assetABI), Bytecode: assetCode},
		"StrategyLib":    {Name: "StrategyLib", SourceName: "contracts/StrategyLib.sol", ABI: empty, Bytecode: libraryCode},
		"Strategy": {
			Name:       "Strategy",
			SourceName: "contracts/Strategy.sol",
			ABI:        empty,
			Bytecode:   strategyCode,
			LinkReferences: map[string]map[string][]domain.LinkRef{
				"contracts/StrategyLib.sol": {"StrategyLib": {{Start: 3, Length: 20}}},
			},
		},
	}
}

// fakeContract is an on-chain contract emulated by the fake chain
type fakeContract interface {
	call(from common.Address, data []byte) ([]byte, error)
}

// fakeChain is an in-memory ledger and development node
type fakeChain struct {
	accounts     []common.Address
	balances     map[common.Address]*big.Int
	contracts    map[common.Address]fakeContract
	receipts     map[common.Hash]*types.Receipt
	impersonated map[common.Address]bool

	// requests lists every method invoked, in order
	requests []string
	sent     []domain.TxRequest
	resets   []string
	created  int

	// vaultRevertOn makes newly deployed vaults revert that setter
	vaultRevertOn *contracts.Operation
	// onReset replaces the chain state on Reset
	onReset func(c *fakeChain)
	// stopErr fails the next StopImpersonating call
	stopErr error
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		accounts:     []common.Address{deployer, stranger},
		balances:     map[common.Address]*big.Int{deployer: ether(1000), stranger: ether(1000)},
		contracts:    make(map[common.Address]fakeContract),
		receipts:     make(map[common.Hash]*types.Receipt),
		impersonated: make(map[common.Address]bool),
	}
}

func (c *fakeChain) record(method string) {
	c.requests = append(c.requests, method)
}

func (c *fakeChain) balance(addr common.Address) *big.Int {
	if b, ok := c.balances[addr]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

func (c *fakeChain) vaultAt(addr common.Address) *fakeVault {
	v, _ := c.contracts[addr].(*fakeVault)
	return v
}

func (c *fakeChain) tokenAt(addr common.Address) *fakeToken {
	tok, _ := c.contracts[addr].(*fakeToken)
	return tok
}

func (c *fakeChain) Accounts(context.Context) ([]common.Address, error) {
	c.record("eth_accounts")
	return append([]common.Address{}, c.accounts...), nil
}

func (c *fakeChain) ChainID(context.Context) (*big.Int, error) {
	c.record("eth_chainId")
	return big.NewInt(31337), nil
}

func (c *fakeChain) BlockNumber(context.Context) (uint64, error) {
	c.record("eth_blockNumber")
	return uint64(len(c.receipts)), nil
}

func (c *fakeChain) Balance(_ context.Context, addr common.Address) (*big.Int, error) {
	c.record("eth_getBalance")
	return c.balance(addr), nil
}

func (c *fakeChain) CodeAt(_ context.Context, addr common.Address) ([]byte, error) {
	c.record("eth_getCode")
	if _, ok := c.contracts[addr]; ok {
		return []byte{0x60}, nil
	}
	return nil, nil
}

func (c *fakeChain) CallContract(_ context.Context, msg domain.CallMsg) ([]byte, error) {
	c.record("eth_call")
	contract, ok := c.contracts[msg.To]
	if !ok {
		return nil, fmt.Errorf("no contract at %s", msg.To.Hex())
	}
	return contract.call(msg.From, msg.Data)
}

func (c *fakeChain) SendTransaction(_ context.Context, req domain.TxRequest) (common.Hash, error) {
	c.record("eth_sendTransaction")

	known := c.impersonated[req.From]
	for _, a := range c.accounts {
		known = known || a == req.From
	}
	if !known {
		return common.Hash{}, fmt.Errorf("unknown account %s", req.From.Hex())
	}

	value := new(big.Int)
	if req.Value != nil {
		value.Set(req.Value)
	}
	cost := new(big.Int).Add(value, txFee)
	if c.balance(req.From).Cmp(cost) < 0 {
		return common.Hash{}, fmt.Errorf("insufficient funds for gas * price + value")
	}

	c.sent = append(c.sent, req)
	hash := common.BigToHash(big.NewInt(int64(len(c.sent))))
	receipt := &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      hash,
		BlockNumber: big.NewInt(int64(len(c.sent))),
		GasUsed:     21_000,
	}

	c.balances[req.From] = new(big.Int).Sub(c.balance(req.From), cost)

	switch {
	case req.To == nil:
		contract, err := c.create(req.Data)
		if err != nil {
			receipt.Status = types.ReceiptStatusFailed
			break
		}
		c.created++
		receipt.ContractAddress = common.BigToAddress(big.NewInt(int64(0xc0de00 + c.created)))
		c.contracts[receipt.ContractAddress] = contract
	case c.contracts[*req.To] != nil:
		if _, err := c.contracts[*req.To].call(req.From, req.Data); err != nil {
			receipt.Status = types.ReceiptStatusFailed
		}
	default:
		c.balances[*req.To] = new(big.Int).Add(c.balance(*req.To), value)
	}

	c.receipts[hash] = receipt
	return hash, nil
}

func (c *fakeChain) create(data []byte) (fakeContract, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("empty creation code")
	}
	switch fmt.Sprintf("%x", data[:2]) {
	case "6001":
		return &fakeVault{chain: c, revertOn: c.vaultRevertOn, shares: make(map[common.Address]*big.Int)}, nil
	case "6002":
		return newFakeToken(18), nil
	case "6003":
		return &fakeLibrary{}, nil
	case "6004":
		return &fakeStrategy{library: common.BytesToAddress(data[3:23])}, nil
	}
	return nil, fmt.Errorf("unknown creation code %x", data[:2])
}

func (c *fakeChain) WaitReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	c.record("eth_getTransactionReceipt")
	receipt, ok := c.receipts[hash]
	if !ok {
		return nil, fmt.Errorf("transaction %s not found", hash.Hex())
	}
	return receipt, nil
}

func (c *fakeChain) Impersonate(_ context.Context, addr common.Address) error {
	c.record("hardhat_impersonateAccount")
	c.impersonated[addr] = true
	return nil
}

func (c *fakeChain) StopImpersonating(_ context.Context, addr common.Address) error {
	c.record("hardhat_stopImpersonatingAccount")
	if err := c.stopErr; err != nil {
		c.stopErr = nil
		return err
	}
	delete(c.impersonated, addr)
	return nil
}

func (c *fakeChain) Reset(_ context.Context, forkURL string, _ uint64) error {
	c.record("hardhat_reset")
	c.resets = append(c.resets, forkURL)
	if c.onReset != nil {
		c.onReset(c)
	}
	return nil
}

func (c *fakeChain) Snapshot(context.Context) (string, error) {
	c.record("evm_snapshot")
	return fmt.Sprintf("0x%x", len(c.requests)), nil
}

func (c *fakeChain) Revert(_ context.Context, id string) error {
	c.record("evm_revert")
	if id == "0xdead" {
		return fmt.Errorf("snapshot %s not found or already reverted", id)
	}
	return nil
}

var (
	_ usecase.Ledger            = (*fakeChain)(nil)
	_ usecase.NetworkController = (*fakeChain)(nil)
)

func word(v any) []byte {
	switch val := v.(type) {
	case common.Address:
		return common.LeftPadBytes(val.Bytes(), 32)
	case *big.Int:
		return common.LeftPadBytes(val.Bytes(), 32)
	case bool:
		if val {
			return common.LeftPadBytes([]byte{1}, 32)
		}
		return make([]byte, 32)
	case uint8:
		return common.LeftPadBytes([]byte{val}, 32)
	}
	panic(fmt.Sprintf("unsupported word %T", v))
}

func is(op contracts.Operation, data []byte) bool {
	return contracts.Lookup(op).Matches(data)
}

// setterCall is a recorded vault configuration call
type setterCall struct {
	Op  contracts.Operation
	Arg string
}

type fakeVault struct {
	chain *fakeChain

	initialized bool
	token       common.Address
	governance  common.Address
	rewards     common.Address
	management  common.Address
	name        string
	symbol      string

	managementFee  *big.Int
	performanceFee *big.Int
	depositLimit   *big.Int

	setters  []setterCall
	revertOn *contracts.Operation
	shares   map[common.Address]*big.Int
}

func (v *fakeVault) call(from common.Address, data []byte) ([]byte, error) {
	switch {
	case is(contracts.VaultInitialize, data):
		if v.initialized {
			return nil, fmt.Errorf("already initialized")
		}
		if err := contracts.Lookup(contracts.VaultInitialize).DecodeInput(data, &v.token, &v.governance, &v.rewards, &v.name, &v.symbol); err != nil {
			return nil, err
		}
		v.initialized = true
		v.management = v.governance
		return nil, nil

	case is(contracts.VaultGovernance, data):
		return word(v.governance), nil
	case is(contracts.VaultManagement, data):
		return word(v.management), nil
	case is(contracts.VaultToken, data):
		return word(v.token), nil

	case is(contracts.VaultSetManagementFee, data):
		return nil, v.set(from, contracts.VaultSetManagementFee, data, &v.managementFee)
	case is(contracts.VaultSetPerformanceFee, data):
		return nil, v.set(from, contracts.VaultSetPerformanceFee, data, &v.performanceFee)
	case is(contracts.VaultSetDepositLimit, data):
		return nil, v.set(from, contracts.VaultSetDepositLimit, data, &v.depositLimit)
	case is(contracts.VaultSetManagement, data):
		return nil, v.set(from, contracts.VaultSetManagement, data, &v.management)

	case is(contracts.VaultDeposit, data):
		var amount *big.Int
		if err := contracts.Lookup(contracts.VaultDeposit).DecodeInput(data, &amount); err != nil {
			return nil, err
		}
		tok := v.chain.tokenAt(v.token)
		if tok == nil {
			return nil, fmt.Errorf("vault token is not a contract")
		}
		if err := tok.transferFrom(v.self(), from, amount); err != nil {
			return nil, err
		}
		held := v.shares[from]
		if held == nil {
			held = new(big.Int)
		}
		v.shares[from] = new(big.Int).Add(held, amount)
		return word(amount), nil

	case is(contracts.VaultBalanceOf, data):
		var owner common.Address
		if err := contracts.Lookup(contracts.VaultBalanceOf).DecodeInput(data, &owner); err != nil {
			return nil, err
		}
		if held := v.shares[owner]; held != nil {
			return word(held), nil
		}
		return word(new(big.Int)), nil
	}
	return nil, fmt.Errorf("vault: unknown selector %x", data[:4])
}

func (v *fakeVault) self() common.Address {
	for addr, c := range v.chain.contracts {
		if c == v {
			return addr
		}
	}
	return common.Address{}
}

func (v *fakeVault) set(from common.Address, op contracts.Operation, data []byte, field any) error {
	if from != v.governance {
		return fmt.Errorf("!authorized")
	}
	if v.revertOn != nil && *v.revertOn == op {
		return fmt.Errorf("execution reverted")
	}
	if err := contracts.Lookup(op).DecodeInput(data, field); err != nil {
		return err
	}

	call := setterCall{Op: op}
	switch f := field.(type) {
	case **big.Int:
		call.Arg = (*f).String()
	case *common.Address:
		call.Arg = f.Hex()
	}
	v.setters = append(v.setters, call)
	return nil
}

type fakeToken struct {
	decimals  uint8
	balances  map[common.Address]*big.Int
	allowance map[common.Address]map[common.Address]*big.Int
}

func newFakeToken(decimals uint8) *fakeToken {
	return &fakeToken{
		decimals:  decimals,
		balances:  make(map[common.Address]*big.Int),
		allowance: make(map[common.Address]map[common.Address]*big.Int),
	}
}

func (tk *fakeToken) balanceOf(addr common.Address) *big.Int {
	if b, ok := tk.balances[addr]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

func (tk *fakeToken) move(from, to common.Address, amount *big.Int) error {
	if tk.balanceOf(from).Cmp(amount) < 0 {
		return fmt.Errorf("transfer amount exceeds balance")
	}
	tk.balances[from] = new(big.Int).Sub(tk.balanceOf(from), amount)
	tk.balances[to] = new(big.Int).Add(tk.balanceOf(to), amount)
	return nil
}

func (tk *fakeToken) transferFrom(spender, owner common.Address, amount *big.Int) error {
	allowed := tk.allowance[owner][spender]
	if allowed == nil || allowed.Cmp(amount) < 0 {
		return fmt.Errorf("transfer amount exceeds allowance")
	}
	if err := tk.move(owner, spender, amount); err != nil {
		return err
	}
	tk.allowance[owner][spender] = new(big.Int).Sub(allowed, amount)
	return nil
}

func (tk *fakeToken) call(from common.Address, data []byte) ([]byte, error) {
	switch {
	case is(contracts.TokenTransfer, data):
		var (
			to     common.Address
			amount *big.Int
		)
		if err := contracts.Lookup(contracts.TokenTransfer).DecodeInput(data, &to, &amount); err != nil {
			return nil, err
		}
		if err := tk.move(from, to, amount); err != nil {
			return nil, err
		}
		return word(true), nil

	case is(contracts.TokenApprove, data):
		var (
			spender common.Address
			amount  *big.Int
		)
		if err := contracts.Lookup(contracts.TokenApprove).DecodeInput(data, &spender, &amount); err != nil {
			return nil, err
		}
		if tk.allowance[from] == nil {
			tk.allowance[from] = make(map[common.Address]*big.Int)
		}
		tk.allowance[from][spender] = amount
		return word(true), nil

	case is(contracts.TokenBalanceOf, data):
		var owner common.Address
		if err := contracts.Lookup(contracts.TokenBalanceOf).DecodeInput(data, &owner); err != nil {
			return nil, err
		}
		return word(tk.balanceOf(owner)), nil

	case is(contracts.TokenDecimals, data):
		return word(tk.decimals), nil
	}
	return nil, fmt.Errorf("token: unknown selector %x", data[:4])
}

type fakeLibrary struct{}

func (fakeLibrary) call(common.Address, []byte) ([]byte, error) {
	return nil, fmt.Errorf("library: not callable")
}

type fakeStrategy struct {
	library common.Address
}

func (*fakeStrategy) call(common.Address, []byte) ([]byte, error) {
	return nil, fmt.Errorf("strategy: not callable")
}

// recordingSink captures everything reported through the progress sink
type recordingSink struct {
	events []usecase.ProgressEvent
	infos  []string
	errors []string
}

func (r *recordingSink) OnProgress(_ context.Context, event usecase.ProgressEvent) {
	r.events = append(r.events, event)
}

func (r *recordingSink) Info(message string)  { r.infos = append(r.infos, message) }
func (r *recordingSink) Error(message string) { r.errors = append(r.errors, message) }

func (r *recordingSink) stages() []string {
	stages := make([]string, 0, len(r.events))
	for _, e := range r.events {
		stages = append(stages, e.Stage)
	}
	return stages
}

type fixture struct {
	chain *fakeChain
	sink  *recordingSink
	orch  *usecase.Orchestrator
}

func newFixture(t *testing.T, confirmer usecase.Confirmer) *fixture {
	t.Helper()
	if confirmer == nil {
		confirmer = usecase.AlwaysConfirm{}
	}

	chain := newFakeChain()
	sink := &recordingSink{}
	cfg := &config.RuntimeConfig{
		Network: &config.Network{Name: "localhost", ForkURL: usecase.DefaultForkURL, Dialect: config.DialectHardhat},
	}

	orch := usecase.NewOrchestrator(
		chain,
		chain,
		newFakeArtifacts(t),
		usecase.ProvideTaskRegistry(cfg, confirmer),
		sink,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return &fixture{chain: chain, sink: sink, orch: orch}
}

// deployVault runs new-vault against heldToken and returns the fake contract
func (f *fixture) deployVault(t *testing.T) (common.Address, *fakeVault) {
	t.Helper()
	result, err := f.orch.Run(context.Background(), usecase.TaskNewVault, map[string]string{
		"token-address": heldToken.Hex(),
		"vault-name":    "Vault",
		"vault-symbol":  "VLT",
	})
	require.NoError(t, err)

	addr := result.Artifact("vault").Address()
	vault := f.chain.vaultAt(addr)
	require.NotNil(t, vault)
	return addr, vault
}
