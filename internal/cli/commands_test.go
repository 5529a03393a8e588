package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCLI executes one full command invocation against a shared store file,
// the same way separate replica processes would.
func runCLI(t *testing.T, storePath string, args ...string) (string, error) {
	t.Helper()

	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--store", storePath}, args...))

	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func testStorePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "vitrina.db")
}

func TestCatalogPutAndList(t *testing.T) {
	store := testStorePath(t)

	out, err := runCLI(t, store, "catalog", "put", "buso-l",
		"--name", "Buso L", "--price", "12500", "--stock", "4", "--category", "buso")
	require.NoError(t, err)
	assert.Contains(t, out, "saved buso-l")
	assert.Contains(t, out, "$12.500")

	out, err = runCLI(t, store, "catalog", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Buso L")
	assert.Contains(t, out, "$12.500")
}

func TestCatalogList_Empty(t *testing.T) {
	out, err := runCLI(t, testStorePath(t), "catalog", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "catalog is empty")
}

func TestCatalogRemove_HidesProduct(t *testing.T) {
	store := testStorePath(t)

	_, err := runCLI(t, store, "catalog", "put", "buso-l", "--name", "Buso L", "--price", "1000")
	require.NoError(t, err)
	_, err = runCLI(t, store, "catalog", "rm", "buso-l")
	require.NoError(t, err)

	out, err := runCLI(t, store, "catalog", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "catalog is empty")
}

func TestCatalogPut_RequiresName(t *testing.T) {
	_, err := runCLI(t, testStorePath(t), "catalog", "put", "buso-l", "--price", "1000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name")
}

func TestCartAddAndShow(t *testing.T) {
	store := testStorePath(t)

	_, err := runCLI(t, store, "catalog", "put", "buso-l", "--name", "Buso L", "--price", "1000")
	require.NoError(t, err)

	out, err := runCLI(t, store, "cart", "add", "buso-l", "--variant", "42", "--qty", "2", "--margin", "20")
	require.NoError(t, err)
	assert.Contains(t, out, "$2.400")

	out, err = runCLI(t, store, "cart", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Buso L")
	assert.Contains(t, out, "$1.200")
	assert.Contains(t, out, "Total:                $2.400")
}

func TestCartAdd_UnknownProduct(t *testing.T) {
	_, err := runCLI(t, testStorePath(t), "cart", "add", "ghost")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "ghost")
}

func TestCartAdd_OverCapacity(t *testing.T) {
	store := testStorePath(t)

	_, err := runCLI(t, store, "catalog", "put", "buso-l", "--name", "Buso L", "--price", "1000")
	require.NoError(t, err)

	_, err = runCLI(t, store, "cart", "add", "buso-l", "--qty", "11")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestCartSetQuantityToZeroRemovesLine(t *testing.T) {
	store := testStorePath(t)

	_, err := runCLI(t, store, "catalog", "put", "buso-l", "--name", "Buso L", "--price", "1000")
	require.NoError(t, err)
	_, err = runCLI(t, store, "cart", "add", "buso-l")
	require.NoError(t, err)

	_, err = runCLI(t, store, "cart", "set-qty", "buso-l", "0")
	require.NoError(t, err)

	out, err := runCLI(t, store, "cart", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "cart is empty")
}

func TestCartClear(t *testing.T) {
	store := testStorePath(t)

	_, err := runCLI(t, store, "catalog", "put", "buso-l", "--name", "Buso L", "--price", "1000")
	require.NoError(t, err)
	_, err = runCLI(t, store, "cart", "add", "buso-l")
	require.NoError(t, err)

	out, err := runCLI(t, store, "cart", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "cart cleared")
}

func TestCheckoutNoDispatch_CreatesPendingOrder(t *testing.T) {
	store := testStorePath(t)

	_, err := runCLI(t, store, "catalog", "put", "buso-l", "--name", "Buso L", "--price", "1000")
	require.NoError(t, err)
	_, err = runCLI(t, store, "cart", "add", "buso-l", "--qty", "2", "--margin", "20")
	require.NoError(t, err)

	out, err := runCLI(t, store, "checkout", "--no-dispatch",
		"--name", "María Pérez", "--phone", "+57 300 123 4567", "--address", "Calle 10 #4-21")
	require.NoError(t, err)
	assert.Contains(t, out, "orders dispatch")

	out, err = runCLI(t, store, "orders", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "María Pérez")
	assert.Contains(t, out, "pendingDispatch")
	assert.Contains(t, out, "$2.400")

	// The snapshot left the cart untouched.
	out, err = runCLI(t, store, "cart", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Buso L")
}

func TestCheckout_EmptyCart(t *testing.T) {
	_, err := runCLI(t, testStorePath(t), "checkout",
		"--name", "María", "--phone", "300", "--address", "Calle 10")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestCheckout_UnconfiguredChannelKeepsOrderAndCart(t *testing.T) {
	t.Setenv("VITRINA_PHONE", "")
	store := testStorePath(t)

	_, err := runCLI(t, store, "catalog", "put", "buso-l", "--name", "Buso L", "--price", "1000")
	require.NoError(t, err)
	_, err = runCLI(t, store, "cart", "add", "buso-l")
	require.NoError(t, err)

	// No whatsappPhone configured: the handoff fails but the order is kept.
	_, err = runCLI(t, store, "checkout",
		"--name", "María", "--phone", "300", "--address", "Calle 10")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retry with")

	out, err := runCLI(t, store, "orders", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "dispatchFailed")

	out, err = runCLI(t, store, "cart", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Buso L")
}

func TestOrdersList_Empty(t *testing.T) {
	out, err := runCLI(t, testStorePath(t), "orders", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "no orders")
}

func TestOrdersShow_Unknown(t *testing.T) {
	_, err := runCLI(t, testStorePath(t), "orders", "show", "missing-id")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestOrdersShow_RendersSnapshot(t *testing.T) {
	store := testStorePath(t)

	_, err := runCLI(t, store, "catalog", "put", "buso-l", "--name", "Buso L", "--price", "1000")
	require.NoError(t, err)
	_, err = runCLI(t, store, "cart", "add", "buso-l", "--variant", "42", "--qty", "2", "--margin", "20")
	require.NoError(t, err)
	_, err = runCLI(t, store, "checkout", "--no-dispatch",
		"--name", "María Pérez", "--phone", "300", "--address", "Calle 10")
	require.NoError(t, err)

	id := orderIDFromList(t, store)
	out, err := runCLI(t, store, "orders", "show", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Order "+id)
	assert.Contains(t, out, "María Pérez")
	assert.Contains(t, out, "Buso L")
	assert.Contains(t, out, "Total: $2.400")
}

func TestJSONFormat_CatalogList(t *testing.T) {
	store := testStorePath(t)

	_, err := runCLI(t, store, "catalog", "put", "buso-l", "--name", "Buso L", "--price", "1000")
	require.NoError(t, err)

	out, err := runCLI(t, store, "--format", "json", "catalog", "list")
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

// orderIDFromList reads the single order's id via the JSON output.
func orderIDFromList(t *testing.T, storePath string) string {
	t.Helper()

	out, err := runCLI(t, storePath, "--format", "json", "orders", "list")
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	return resp.Data[0].ID
}
