package chain

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// WrappedSOLMint is the native-SOL pseudo-mint. A source or destination
// resolving to this mint is handled through single-use WSOL scratch accounts
// rather than persistent associated accounts.
var WrappedSOLMint = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")

// TokenAccountSpan is the byte span of a standard SPL token account,
// used for rent-exemption queries.
const TokenAccountSpan = 165

var associatedTokenProgramID = solana.MustPublicKeyFromBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")

// FindAssociatedTokenAddress derives the ATA PDA for (owner, mint).
func FindAssociatedTokenAddress(owner, mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	// Seeds: [owner, token_program, mint]
	return solana.FindProgramAddress(
		[][]byte{
			owner.Bytes(),
			solana.TokenProgramID.Bytes(),
			mint.Bytes(),
		},
		associatedTokenProgramID,
	)
}

// NewCreateAssociatedTokenAccountIx builds an instruction to create an ATA.
// Account order (ATA program):
// 0. payer (signer, writable)
// 1. ata (writable)
// 2. owner (read-only)
// 3. mint (read-only)
// 4. system_program
// 5. token_program
// 6. rent_sysvar
func NewCreateAssociatedTokenAccountIx(
	payer solana.PublicKey,
	ata solana.PublicKey,
	owner solana.PublicKey,
	mint solana.PublicKey,
) solana.Instruction {
	accounts := []*solana.AccountMeta{
		{PublicKey: payer, IsSigner: true, IsWritable: true},
		{PublicKey: ata, IsSigner: false, IsWritable: true},
		{PublicKey: owner, IsSigner: false, IsWritable: false},
		{PublicKey: mint, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SysVarRentPubkey, IsSigner: false, IsWritable: false},
	}

	// ATA create instruction data is empty.
	return solana.NewInstruction(associatedTokenProgramID, accounts, nil)
}

// NewCreateAccountIx builds a SystemProgram CreateAccount instruction.
// Used for WSOL scratch accounts: lamports = rent exemption plus any SOL
// being wrapped.
func NewCreateAccountIx(from, newAccount solana.PublicKey, lamports, space uint64, owner solana.PublicKey) solana.Instruction {
	// SystemProgram instruction layout:
	// u32: instruction index (0 = CreateAccount)
	// u64: lamports
	// u64: space
	// [32]byte: owner program
	data := make([]byte, 4+8+8+32)
	binary.LittleEndian.PutUint32(data[0:4], 0)
	binary.LittleEndian.PutUint64(data[4:12], lamports)
	binary.LittleEndian.PutUint64(data[12:20], space)
	copy(data[20:52], owner.Bytes())

	accounts := []*solana.AccountMeta{
		{PublicKey: from, IsSigner: true, IsWritable: true},
		{PublicKey: newAccount, IsSigner: true, IsWritable: true},
	}
	return solana.NewInstruction(solana.SystemProgramID, accounts, data)
}

// NewSystemTransferIx builds a SystemProgram transfer instruction.
func NewSystemTransferIx(from, to solana.PublicKey, lamports uint64) solana.Instruction {
	// u32: instruction index (2 = Transfer), u64: lamports
	data := make([]byte, 4+8)
	binary.LittleEndian.PutUint32(data[0:4], 2)
	binary.LittleEndian.PutUint64(data[4:12], lamports)

	accounts := []*solana.AccountMeta{
		{PublicKey: from, IsSigner: true, IsWritable: true},
		{PublicKey: to, IsSigner: false, IsWritable: true},
	}
	return solana.NewInstruction(solana.SystemProgramID, accounts, data)
}

// NewTokenInitializeAccountIx builds a SPL Token InitializeAccount instruction.
func NewTokenInitializeAccountIx(account, mint, owner solana.PublicKey) solana.Instruction {
	// TokenProgram instruction index 1 = InitializeAccount
	data := []byte{1}
	accounts := []*solana.AccountMeta{
		{PublicKey: account, IsSigner: false, IsWritable: true},
		{PublicKey: mint, IsSigner: false, IsWritable: false},
		{PublicKey: owner, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SysVarRentPubkey, IsSigner: false, IsWritable: false},
	}
	return solana.NewInstruction(solana.TokenProgramID, accounts, data)
}

// NewTokenApproveIx builds a SPL Token Approve instruction delegating
// `amount` from `source` to `delegate`.
func NewTokenApproveIx(source, delegate, owner solana.PublicKey, amount uint64) solana.Instruction {
	// TokenProgram instruction index 4 = Approve, u64 amount
	data := make([]byte, 1+8)
	data[0] = 4
	binary.LittleEndian.PutUint64(data[1:9], amount)

	accounts := []*solana.AccountMeta{
		{PublicKey: source, IsSigner: false, IsWritable: true},
		{PublicKey: delegate, IsSigner: false, IsWritable: false},
		{PublicKey: owner, IsSigner: true, IsWritable: false},
	}
	return solana.NewInstruction(solana.TokenProgramID, accounts, data)
}

// NewTokenCloseAccountIx builds a SPL Token CloseAccount instruction.
// Closing a WSOL account refunds its rent deposit and unwraps the balance.
func NewTokenCloseAccountIx(account, destination, owner solana.PublicKey) solana.Instruction {
	// TokenProgram instruction index 9 = CloseAccount
	data := []byte{9}
	accounts := []*solana.AccountMeta{
		{PublicKey: account, IsSigner: false, IsWritable: true},
		{PublicKey: destination, IsSigner: false, IsWritable: true},
		{PublicKey: owner, IsSigner: true, IsWritable: false},
	}
	return solana.NewInstruction(solana.TokenProgramID, accounts, data)
}

// TokenSwapIxParams carries everything the SPL Token Swap program needs for
// a single-hop swap instruction.
type TokenSwapIxParams struct {
	ProgramID         solana.PublicKey
	SwapAccount       solana.PublicKey
	Authority         solana.PublicKey
	TransferAuthority solana.PublicKey
	UserSource        solana.PublicKey
	PoolSource        solana.PublicKey
	PoolDestination   solana.PublicKey
	UserDestination   solana.PublicKey
	PoolMint          solana.PublicKey
	FeeAccount        solana.PublicKey
	HostFeeAccount    *solana.PublicKey
	AmountIn          uint64
	MinAmountOut      uint64
}

// NewTokenSwapIx constructs an SPL Token Swap instruction.
// Account order:
// 0. swap_state
// 1. authority (PDA controlling the vaults)
// 2. user_transfer_authority (signer)
// 3. user_source
// 4. pool_source
// 5. pool_destination
// 6. user_destination
// 7. pool_mint (LP token mint)
// 8. fee_account
// 9. token_program
// 10. host_fee_account (optional)
func NewTokenSwapIx(p TokenSwapIxParams) (solana.Instruction, error) {
	if p.ProgramID.IsZero() {
		return nil, fmt.Errorf("token swap: program id is zero")
	}

	accounts := []*solana.AccountMeta{
		{PublicKey: p.SwapAccount, IsWritable: true, IsSigner: false},
		{PublicKey: p.Authority, IsWritable: false, IsSigner: false},
		{PublicKey: p.TransferAuthority, IsWritable: false, IsSigner: true},
		{PublicKey: p.UserSource, IsWritable: true, IsSigner: false},
		{PublicKey: p.PoolSource, IsWritable: true, IsSigner: false},
		{PublicKey: p.PoolDestination, IsWritable: true, IsSigner: false},
		{PublicKey: p.UserDestination, IsWritable: true, IsSigner: false},
		{PublicKey: p.PoolMint, IsWritable: true, IsSigner: false},
		{PublicKey: p.FeeAccount, IsWritable: true, IsSigner: false},
		{PublicKey: solana.TokenProgramID, IsWritable: false, IsSigner: false},
	}
	if p.HostFeeAccount != nil {
		accounts = append(accounts, &solana.AccountMeta{
			PublicKey:  *p.HostFeeAccount,
			IsWritable: true,
			IsSigner:   false,
		})
	}

	// Instruction data layout:
	// [0]    = instruction discriminator (1 = Swap)
	// [1:9]  = amount_in (u64, little-endian)
	// [9:17] = minimum_amount_out (u64, little-endian)
	data := make([]byte, 17)
	data[0] = 1
	binary.LittleEndian.PutUint64(data[1:9], p.AmountIn)
	binary.LittleEndian.PutUint64(data[9:17], p.MinAmountOut)

	return solana.NewInstruction(p.ProgramID, accounts, data), nil
}
